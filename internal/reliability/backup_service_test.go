package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/events"
	testingutil "github.com/aristath/papertrade/internal/testing"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for key, data := range m.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newLedger(t *testing.T) *database.DB {
	t.Helper()
	db, cleanup := testingutil.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)
	_, err := db.Conn().Exec(`INSERT INTO accounts (username, hash, cash, created_at) VALUES ('alice', 'x', '10000', 0)`)
	require.NoError(t, err)
	return db
}

func newService(t *testing.T, store ObjectStore, retain int, bus *events.Bus) *BackupService {
	t.Helper()
	var manager *events.Manager
	if bus != nil {
		manager = events.NewManager(bus, zerolog.Nop())
	}
	return NewBackupService([]*database.DB{newLedger(t)}, store, "papertrade/", retain, t.TempDir(), manager, zerolog.Nop())
}

func TestCreateAndUploadBackup(t *testing.T) {
	store := newMemoryStore()
	bus := events.NewBus()
	feed, cancel := bus.Subscribe(nil)
	defer cancel()

	svc := newService(t, store, 3, bus)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	info, err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "papertrade/papertrade-backup-2024-03-01-120000.tar.gz", info.Key)
	require.Equal(t, []string{info.Key}, store.keys())

	metadata, err := VerifyArchive(bytes.NewReader(store.objects[info.Key]))
	require.NoError(t, err)
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, "ledger", metadata.Databases[0].Name)
	assert.Greater(t, metadata.Databases[0].SizeBytes, int64(0))

	select {
	case e := <-feed:
		assert.Equal(t, events.BackupCompleted, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no backup event")
	}
}

func TestCreateAndUploadBackup_UploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unavailable")
	svc := newService(t, store, 3, nil)

	_, err := svc.CreateAndUploadBackup(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")

	entries, err := os.ReadDir(svc.stagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging files are removed")
}

func TestRunRotatesToNewestN(t *testing.T) {
	store := newMemoryStore()
	svc := newService(t, store, 2, nil)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 4; day++ {
		stamp := base.AddDate(0, 0, day)
		svc.now = func() time.Time { return stamp }
		require.NoError(t, svc.Run(context.Background()))
	}

	// objects outside the naming scheme are never touched
	require.NoError(t, store.Upload(context.Background(), "papertrade/papertrade-backup-notes.txt", bytes.NewReader(nil)))

	assert.Equal(t, []string{
		"papertrade/papertrade-backup-2024-03-03-000000.tar.gz",
		"papertrade/papertrade-backup-2024-03-04-000000.tar.gz",
		"papertrade/papertrade-backup-notes.txt",
	}, store.keys())

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp), "newest first")
}

func TestVerifyArchive_DetectsTampering(t *testing.T) {
	svc := newService(t, newMemoryStore(), 1, nil)
	archivePath := filepath.Join(t.TempDir(), "a.tar.gz")

	_, err := svc.BuildArchive(context.Background(), archivePath)
	require.NoError(t, err)

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	_, err = VerifyArchive(f)
	f.Close()
	require.NoError(t, err)

	// an archive with the manifest but different database content fails
	sourceDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "ledger.db"), []byte("not a database"), 0644))
	manifest, err := readManifest(archivePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, metadataFilename), manifest, 0644))

	tampered := filepath.Join(t.TempDir(), "b.tar.gz")
	require.NoError(t, createArchive(tampered, sourceDir, []string{metadataFilename, "ledger.db"}))

	f, err = os.Open(tampered)
	require.NoError(t, err)
	defer f.Close()
	_, err = VerifyArchive(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestVerifyArchive_RejectsGarbage(t *testing.T) {
	_, err := VerifyArchive(bytes.NewReader([]byte("plain text")))
	assert.Error(t, err)
}

func TestMaintenanceJob(t *testing.T) {
	job := NewMaintenanceJob([]*database.DB{newLedger(t)}, zerolog.Nop())
	assert.Equal(t, "maintenance", job.Name())
	assert.NoError(t, job.Run())
}

func TestBackupJob(t *testing.T) {
	store := newMemoryStore()
	job := NewBackupJob(newService(t, store, 1, nil), zerolog.Nop())

	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.keys(), 1)
}

func readManifest(archivePath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if header.Name == metadataFilename {
			return io.ReadAll(tr)
		}
	}
}

func TestRun_UploadFailureEmitsError(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unavailable")
	bus := events.NewBus()
	feed, cancel := bus.Subscribe(nil)
	defer cancel()

	err := newService(t, store, 3, bus).Run(context.Background())
	require.Error(t, err)

	select {
	case e := <-feed:
		assert.Equal(t, events.ErrorOccurred, e.Type)
		data, ok := e.Data.(*events.ErrorEventData)
		require.True(t, ok)
		assert.Contains(t, data.Error, "bucket unavailable")
		assert.Equal(t, "backup", data.Context["operation"])
	case <-time.After(time.Second):
		t.Fatal("no error event")
	}
}
