package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"only spaces", "   ", nil},
		{"comma only", ",", nil},
		{"single origin", "https://papertrade.example", []string{"https://papertrade.example"}},
		{"wildcard", "*", []string{"*"}},
		{"varied spacing", "http://localhost:8080 ,  https://papertrade.example", []string{"http://localhost:8080", "https://papertrade.example"}},
		{"empty entries dropped", ",,http://a.test,,http://b.test,", []string{"http://a.test", "http://b.test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	stop := OperationTimer("trade", 0, log)
	d := stop()

	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Contains(t, buf.String(), `"operation":"trade"`)
	assert.NotContains(t, buf.String(), "Slow operation detected")
}

func TestOperationTimer_WarnsWhenSlow(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.WarnLevel)

	stop := OperationTimer("backup", time.Nanosecond, log)
	time.Sleep(2 * time.Millisecond)
	stop()

	assert.Contains(t, buf.String(), "Slow operation detected")
	assert.Contains(t, buf.String(), `"operation":"backup"`)
}
