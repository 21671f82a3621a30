package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/utils"
)

const (
	archivePrefix     = "papertrade-backup-"
	archiveSuffix     = ".tar.gz"
	archiveTimeFormat = "2006-01-02-150405"
	metadataFilename  = "backup-metadata.json"
	metadataVersion   = "1"
)

// BackupMetadata is the manifest stored inside every archive
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database file in an archive
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// BackupInfo describes a stored backup
type BackupInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
}

// BackupService snapshots databases, packs them with a checksum manifest
// and keeps the newest archives in an object store
type BackupService struct {
	databases    []*database.DB
	store        ObjectStore
	eventManager *events.Manager
	log          zerolog.Logger
	prefix       string
	stagingDir   string
	retain       int
	now          func() time.Time
}

// NewBackupService creates a backup service. eventManager may be nil.
// stagingDir holds temporary snapshots while an archive is built.
func NewBackupService(
	databases []*database.DB,
	store ObjectStore,
	prefix string,
	retain int,
	stagingDir string,
	eventManager *events.Manager,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		databases:    databases,
		store:        store,
		prefix:       prefix,
		retain:       retain,
		stagingDir:   stagingDir,
		eventManager: eventManager,
		log:          log.With().Str("service", "backup").Logger(),
		now:          time.Now,
	}
}

// Run creates and uploads a backup, then rotates old ones
func (s *BackupService) Run(ctx context.Context) error {
	defer utils.OperationTimer("backup", 5*time.Minute, s.log)()

	info, err := s.CreateAndUploadBackup(ctx)
	if err != nil {
		if s.eventManager != nil {
			s.eventManager.EmitError("reliability", err, map[string]interface{}{"operation": "backup"})
		}
		return err
	}

	if _, err := s.RotateOldBackups(ctx); err != nil {
		// the new backup is already stored; rotation is retried next run
		s.log.Warn().Err(err).Str("key", info.Key).Msg("Backup rotation failed")
	}
	return nil
}

// CreateAndUploadBackup builds an archive of every database and uploads it
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) (*BackupInfo, error) {
	s.log.Info().Msg("Starting backup")
	startTime := s.now()

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	workDir, err := os.MkdirTemp(s.stagingDir, "backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	archivePath := filepath.Join(workDir, "archive"+archiveSuffix)
	if _, err := s.BuildArchive(ctx, archivePath); err != nil {
		return nil, err
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	key := s.prefix + archivePrefix + startTime.UTC().Format(archiveTimeFormat) + archiveSuffix
	if err := s.store.Upload(ctx, key, archiveFile); err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	info := &BackupInfo{Key: key, Timestamp: startTime.UTC(), SizeBytes: archiveInfo.Size()}

	s.log.Info().
		Dur("duration_ms", s.now().Sub(startTime)).
		Str("key", key).
		Int64("size_bytes", info.SizeBytes).
		Msg("Backup completed successfully")

	if s.eventManager != nil {
		s.eventManager.Emit("reliability", 0, &events.BackupCompletedData{Key: key, SizeBytes: info.SizeBytes})
	}

	return info, nil
}

// BuildArchive writes a tar.gz of consistent database snapshots plus the manifest to archivePath
func (s *BackupService) BuildArchive(ctx context.Context, archivePath string) (*BackupMetadata, error) {
	snapshotDir, err := os.MkdirTemp(filepath.Dir(archivePath), "snapshots-")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	defer os.RemoveAll(snapshotDir)

	metadata := &BackupMetadata{
		Timestamp: s.now().UTC(),
		Version:   metadataVersion,
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	for _, db := range s.databases {
		filename := db.Name() + ".db"
		snapshotPath := filepath.Join(snapshotDir, filename)

		s.log.Debug().Str("database", db.Name()).Msg("Snapshotting database")
		if err := db.SnapshotTo(ctx, snapshotPath); err != nil {
			return nil, fmt.Errorf("failed to backup %s: %w", db.Name(), err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s backup: %w", db.Name(), err)
		}
		checksum, err := fileChecksum(snapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate checksum for %s: %w", db.Name(), err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	metadataBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(snapshotDir, metadataFilename), metadataBytes, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	files := []string{metadataFilename}
	for _, d := range metadata.Databases {
		files = append(files, d.Filename)
	}
	if err := createArchive(archivePath, snapshotDir, files); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	return metadata, nil
}

// ListBackups lists stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, s.prefix+archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}

		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		timestamp, err := time.Parse(archiveTimeFormat, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup name")
			continue
		}

		backups = append(backups, BackupInfo{Key: obj.Key, Timestamp: timestamp, SizeBytes: obj.SizeBytes})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateOldBackups deletes everything but the newest retain backups and returns how many were deleted
func (s *BackupService) RotateOldBackups(ctx context.Context) (int, error) {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= s.retain {
		return 0, nil
	}

	deleted := 0
	for _, backup := range backups[s.retain:] {
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", backup.Key).Time("timestamp", backup.Timestamp).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")

	return deleted, nil
}

// VerifyArchive reads a tar.gz archive and checks every database against the manifest
func VerifyArchive(r io.Reader) (*BackupMetadata, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer gz.Close()

	var metadata *BackupMetadata
	checksums := make(map[string]string)

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive: %w", err)
		}

		if header.Name == metadataFilename {
			metadata = &BackupMetadata{}
			if err := json.NewDecoder(tr).Decode(metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
			continue
		}

		hash := sha256.New()
		if _, err := io.Copy(hash, tr); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		checksums[header.Name] = fmt.Sprintf("sha256:%x", hash.Sum(nil))
	}

	if metadata == nil {
		return nil, fmt.Errorf("archive has no %s", metadataFilename)
	}
	for _, d := range metadata.Databases {
		got, ok := checksums[d.Filename]
		if !ok {
			return nil, fmt.Errorf("archive is missing %s", d.Filename)
		}
		if got != d.Checksum {
			return nil, fmt.Errorf("checksum mismatch for %s", d.Filename)
		}
	}

	return metadata, nil
}

// fileChecksum calculates the SHA256 checksum of a file
func fileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// createArchive creates a tar.gz archive of the named files in sourceDir
func createArchive(archivePath, sourceDir string, filenames []string) (err error) {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if closeErr := archiveFile.Close(); err == nil {
			err = closeErr
		}
	}()

	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	return gzipWriter.Close()
}

// addFileToArchive adds a single file to a tar archive
func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tarWriter, file)
	return err
}
