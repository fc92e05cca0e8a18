package file

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// TempPrefix marks files that hold temporary tables. They are never logged
// and are removed when a Manager is created.
const TempPrefix = "temp"

// IsTemp reports whether filename belongs to a temporary table.
func IsTemp(filename string) bool {
	return strings.HasPrefix(filename, TempPrefix)
}

// ErrReadOnly is returned when writing through a read-only Manager.
var ErrReadOnly = errors.New("file manager: read-only")

type Manager struct {
	mu        sync.Mutex // serializes Append, Size and Close
	directory string
	blockSize int32
	isNew     bool
	readOnly  bool
	openFiles *xsync.MapOf[string, *os.File]
}

func (m *Manager) BlockSize() int32 {
	return m.blockSize
}

// IsNew reports whether the database directory had to be created.
func (m *Manager) IsNew() bool {
	return m.isNew
}

// NewManager creates a new file manager for a given database directory.
// It creates the directory if it does not already exist.
// It also removes any temporary files that may have been leftover from
// previous database sessions.
func NewManager(directory string, blockSize int32) (*Manager, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("file manager: invalid block size %d", blockSize)
	}

	_, err := os.Stat(directory)
	isNew := os.IsNotExist(err)

	// Create the directory if the database is new.
	if err := os.MkdirAll(directory, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", directory)
	}

	// Remove any leftover temporary tables.
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %s", directory)
	}
	for _, entry := range entries {
		if IsTemp(entry.Name()) {
			if err := os.Remove(filepath.Join(directory, entry.Name())); err != nil {
				return nil, errors.Wrapf(err, "cannot remove %s", entry.Name())
			}
		}
	}

	return &Manager{
		directory: directory,
		blockSize: blockSize,
		isNew:     isNew,
		openFiles: xsync.NewMapOf[string, *os.File](),
	}, nil
}

// OpenReadOnly opens an existing database directory for inspection.
// Nothing is created or removed, and writes fail with ErrReadOnly.
func OpenReadOnly(directory string, blockSize int32) (*Manager, error) {
	if blockSize <= 0 {
		return nil, errors.Errorf("file manager: invalid block size %d", blockSize)
	}

	info, err := os.Stat(directory)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", directory)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", directory)
	}

	return &Manager{
		directory: directory,
		blockSize: blockSize,
		readOnly:  true,
		openFiles: xsync.NewMapOf[string, *os.File](),
	}, nil
}

// Read reads the contents of a disk block into a page.
// Blocks past the end of the file read as zeroes.
// It is safe for concurrent use.
func (m *Manager) Read(block Block, page *Page) error {
	f, err := m.getOpenFile(block.Filename())
	if err != nil {
		return errors.Wrapf(err, "cannot read block %s", block)
	}

	page.Clear()
	if _, err := f.ReadAt(page.Buf(), m.offset(block)); err != nil && err != io.EOF {
		return errors.Wrapf(err, "cannot read block %s", block)
	}

	return nil
}

// Write writes the contents of a page to a disk block.
// It is safe for concurrent use.
func (m *Manager) Write(block Block, page *Page) error {
	return m.write(block, page)
}

// Append writes the page as a new block at the end of the specified file
// and returns the new block. Appends and size queries are serialized by the
// manager, so concurrent appends get distinct block numbers.
func (m *Manager) Append(filename string, page *Page) (Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size, err := m.size(filename)
	if err != nil {
		return Block{}, err
	}

	block := NewBlock(filename, size)
	if err := m.write(block, page); err != nil {
		return Block{}, err
	}

	return block, nil
}

// Size returns the number of blocks in the specified file.
func (m *Manager) Size(filename string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.size(filename)
}

// Close closes every open file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	m.openFiles.Range(func(name string, f *os.File) bool {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "cannot close %s", name)
		}
		return true
	})
	m.openFiles.Clear()
	return firstErr
}

func (m *Manager) write(block Block, page *Page) error {
	if m.readOnly {
		return errors.Wrapf(ErrReadOnly, "cannot write block %s", block)
	}

	f, err := m.getOpenFile(block.Filename())
	if err != nil {
		return errors.Wrapf(err, "cannot write block %s", block)
	}

	if _, err := f.WriteAt(page.Buf(), m.offset(block)); err != nil {
		return errors.Wrapf(err, "cannot write block %s", block)
	}

	return nil
}

func (m *Manager) size(filename string) (int32, error) {
	f, err := m.getOpenFile(filename)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot access %s", filename)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "cannot access %s", filename)
	}

	return int32(info.Size() / int64(m.blockSize)), nil
}

func (m *Manager) offset(block Block) int64 {
	return int64(block.Number()) * int64(m.blockSize)
}

// getOpenFile retrieves or creates a file handle for the specified filename.
// Cached handles are returned without locking; a missing handle is opened
// at most once per filename.
func (m *Manager) getOpenFile(filename string) (*os.File, error) {
	if f, ok := m.openFiles.Load(filename); ok {
		return f, nil
	}

	var openErr error
	f, ok := m.openFiles.Compute(filename, func(f *os.File, loaded bool) (*os.File, bool) {
		if loaded {
			return f, false
		}
		// O_SYNC makes every write durable before it returns, which the
		// recovery algorithm depends on.
		flag := os.O_RDWR | os.O_CREATE | os.O_SYNC
		if m.readOnly {
			flag = os.O_RDONLY
		}
		f, openErr = os.OpenFile(filepath.Join(m.directory, filename), flag, 0666)
		return f, openErr != nil
	})
	if !ok {
		return nil, openErr
	}
	return f, nil
}
