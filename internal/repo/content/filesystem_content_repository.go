package content

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
)

var ErrBytesWrittenMismatch = errors.New("bytes written mismatch")

const (
	maxSaveAttempts  = 5
	maxSuffixLength  = 64
	disambiguatorLen = 4
	defaultSuffix    = "upload"
)

// FileSystemContentRepositoryConfig holds configuration for the filesystem-based content repository.
type FileSystemContentRepositoryConfig struct {
	// Basedir is the root directory for uploaded images
	Basedir string `env:"BASEDIR" default:"var/storage/content"`
}

// FileSystemContentRepositoryFactory creates a factory function that returns a new FileSystemContentRepository
// backed by the operating system's filesystem.
func FileSystemContentRepositoryFactory(cfg FileSystemContentRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewFileSystemContentRepository(ctx, afero.NewOsFs(), cfg)
	}
}

// NewFileSystemContentRepository creates a new FileSystemContentRepository rooted at cfg.Basedir on fsys.
func NewFileSystemContentRepository(
	ctx context.Context,
	fsys afero.Fs,
	cfg FileSystemContentRepositoryConfig,
) (repo *FileSystemContentRepository, err error) {
	log := logging.GetLogger("repo.content.filesystem_content_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			log.DebugContext(ctx, "init storage")
		}
	}()

	if err := fsys.MkdirAll(cfg.Basedir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return &FileSystemContentRepository{
		fs:   afero.NewBasePathFs(fsys, cfg.Basedir),
		log:  log,
		now:  time.Now,
		rand: rand.Read,
	}, nil
}

// FileSystemContentRepository implements Repository on an afero filesystem.
// Files are laid out as <basedir>/<owner>/<filename>.
type FileSystemContentRepository struct {
	fs   afero.Fs
	log  logging.Logger
	now  func() time.Time
	rand func([]byte) (int, error)
}

var _ Repository = (*FileSystemContentRepository)(nil)

// Save implements Repository.Save.
// Files are created exclusively, so an existing file is never overwritten;
// on a name collision a new disambiguator is drawn.
func (r *FileSystemContentRepository) Save(
	ctx context.Context,
	owner string,
	originalName string,
	body []byte,
) (file *domain.StoredFile, err error) {
	log := r.log.With(logging.Group("content", "owner", owner, "size", len(body)))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "save failed", "error", err)
		} else {
			log.DebugContext(ctx, "saved", "filename", file.Filename)
		}
	}()

	if !validSegment(owner) {
		return nil, fmt.Errorf("%w: owner %q", domain.ErrInvalidInput, owner)
	}

	if err := r.fs.MkdirAll(owner, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", errors.Join(domain.ErrStorageFailure, err))
	}

	suffix := sanitizeName(originalName)

	for range maxSaveAttempts {
		filename, err := r.newFilename(suffix)
		if err != nil {
			return nil, err
		}

		file = &domain.StoredFile{Owner: owner, Filename: filename, Body: body}

		err = r.write(file)
		if errors.Is(err, fs.ErrExist) {
			log.WarnContext(ctx, "filename collision", "filename", filename)

			continue
		} else if err != nil {
			return nil, err
		}

		return file, nil
	}

	return nil, fmt.Errorf("no free filename after %d attempts: %w", maxSaveAttempts, domain.ErrStorageFailure)
}

func (r *FileSystemContentRepository) write(file *domain.StoredFile) (err error) {
	name := path.Join(file.Owner, file.Filename)

	fh, err := r.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("open: %w", err)
		}

		return fmt.Errorf("open: %w", errors.Join(domain.ErrStorageFailure, err))
	}

	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", errors.Join(domain.ErrStorageFailure, cerr))
		}

		if err != nil {
			_ = r.fs.Remove(name)
		}
	}()

	if n, err := file.WriteTo(fh); err != nil {
		return fmt.Errorf("write: %w", errors.Join(domain.ErrStorageFailure, err))
	} else if n != file.Size() {
		return fmt.Errorf("%w: expected %d, got %d", errors.Join(domain.ErrStorageFailure, ErrBytesWrittenMismatch),
			file.Size(), n)
	} else if err := fh.Sync(); err != nil {
		return fmt.Errorf("sync: %w", errors.Join(domain.ErrStorageFailure, err))
	}

	return nil
}

// Read implements Repository.Read.
func (r *FileSystemContentRepository) Read(
	ctx context.Context,
	owner string,
	filename string,
) (file *domain.StoredFile, err error) {
	log := r.log.With(logging.Group("content", "owner", owner, "filename", filename))

	defer func() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.ErrorContext(ctx, "read failed", "error", err)
		} else if err != nil {
			log.DebugContext(ctx, "read rejected", "error", err)
		}
	}()

	name, err := r.resolve(owner, filename)
	if err != nil {
		return nil, err
	}

	body, err := afero.ReadFile(r.fs, name)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", mapError(err))
	}

	return &domain.StoredFile{Owner: owner, Filename: filename, Body: body}, nil
}

// Delete implements Repository.Delete.
func (r *FileSystemContentRepository) Delete(ctx context.Context, owner string, filename string) (err error) {
	log := r.log.With(logging.Group("content", "owner", owner, "filename", filename))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "deleted")
		}
	}()

	name, err := r.resolve(owner, filename)
	if err != nil {
		return err
	}

	if err := r.fs.Remove(name); err != nil {
		return fmt.Errorf("remove: %w", mapError(err))
	}

	return nil
}

// resolve maps owner and filename to a path inside the owner's directory.
// Both must be single, non-special path segments and the target must not be a symlink.
func (r *FileSystemContentRepository) resolve(owner, filename string) (string, error) {
	if !validSegment(owner) || !validSegment(filename) {
		return "", fmt.Errorf("%w: malformed path", domain.ErrNotFound)
	}

	name := path.Join(owner, filename)

	if lstater, ok := r.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)
		if err != nil {
			return "", fmt.Errorf("lstat: %w", mapError(err))
		}

		if info.Mode()&fs.ModeSymlink != 0 || info.IsDir() {
			return "", fmt.Errorf("%w: not a regular file", domain.ErrNotFound)
		}
	}

	return name, nil
}

func (r *FileSystemContentRepository) newFilename(suffix string) (string, error) {
	disambiguator := make([]byte, disambiguatorLen)
	if _, err := r.rand(disambiguator); err != nil {
		return "", fmt.Errorf("read random: %w", errors.Join(domain.ErrInternal, err))
	}

	return fmt.Sprintf("%d-%s-%s", r.now().UnixMilli(), hex.EncodeToString(disambiguator), suffix), nil
}

func validSegment(segment string) bool {
	return segment != "" &&
		segment != "." &&
		segment != ".." &&
		!strings.ContainsAny(segment, "/\\\x00")
}

// sanitizeName reduces a client-supplied filename to a safe base name.
func sanitizeName(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)

	name = strings.TrimLeft(name, ".")

	if len(name) > maxSuffixLength {
		name = name[len(name)-maxSuffixLength:]
	}

	if strings.Trim(name, "_") == "" {
		return defaultSuffix
	}

	return name
}

func mapError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Join(domain.ErrNotFound, err)
	}

	return errors.Join(domain.ErrStorageFailure, err)
}
