package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/uuid"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

// ListInput is the argument of local_list_files.
type ListInput struct {
	Directory string `json:"directory,omitempty" jsonschema:"description=Directory to list; defaults to the work directory"`
	Pattern   string `json:"pattern,omitempty" jsonschema:"description=Glob pattern such as *.txt,default=*"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"description=Search subdirectories"`
}

// FileInput names one file.
type FileInput struct {
	Filename  string `json:"filename" jsonschema:"description=Name of the file"`
	Directory string `json:"directory,omitempty" jsonschema:"description=Directory containing the file; defaults to the work directory"`
}

// WriteInput is the argument of local_write_file.
type WriteInput struct {
	Content   string `json:"content" jsonschema:"description=Content to write"`
	Filename  string `json:"filename,omitempty" jsonschema:"description=File name; a UUID when omitted"`
	Directory string `json:"directory,omitempty" jsonschema:"description=Target directory; created if missing"`
	Extension string `json:"extension,omitempty" jsonschema:"description=File extension,default=txt"`
}

// AppendInput is the argument of local_append_to_file.
type AppendInput struct {
	Content   string `json:"content" jsonschema:"description=Content to append"`
	Filename  string `json:"filename" jsonschema:"description=Name of an existing file"`
	Directory string `json:"directory,omitempty" jsonschema:"description=Directory containing the file"`
}

// FileEntry describes one listed file.
type FileEntry struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	SizeBytes    int64   `json:"size_bytes"`
	Extension    *string `json:"extension"`
	ModifiedTime float64 `json:"modified_time"`
}

// FileSystem serves the local_* file tools. Relative directories resolve
// against its work directory.
type FileSystem struct {
	workDir string
	logger  *common.Logger
}

// NewFileSystem creates the file tools rooted at workDir.
func NewFileSystem(workDir string, logger *common.Logger) *FileSystem {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &FileSystem{workDir: workDir, logger: logger}
}

// Register adds the file tools to r.
func (f *FileSystem) Register(r registry.Registrar) error {
	return registry.RegisterAll(r,
		named(registry.Typed(f.listFiles), "local_list_files", "List files in a directory with optional glob matching."),
		named(registry.Typed(f.readFile), "local_read_file", "Read the content of a text file."),
		named(registry.Typed(f.writeFile), "local_write_file", "Write content to a file."),
		named(registry.Typed(f.appendToFile), "local_append_to_file", "Append content to an existing file."),
		named(registry.Typed(f.deleteFile), "local_delete_file", "Delete a file."),
		named(registry.Typed(f.fileInfo), "local_get_file_info", "Get size, timestamps and type of a file."),
	)
}

func (f *FileSystem) dir(d string) string {
	if d == "" {
		return absDir(f.workDir)
	}
	return resolvePath(f.workDir, d)
}

// regularFile stats the file and reports a ready-made failure when it is
// missing or not a regular file.
func regularFile(path string) (fs.FileInfo, *result.Result) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		r := result.Fail("File not found: %s", path)
		return nil, &r
	}
	if err != nil {
		r := result.Fail("Failed to stat file: %v", err)
		return nil, &r
	}
	if !info.Mode().IsRegular() {
		r := result.Fail("Path is not a file: %s", path)
		return nil, &r
	}
	return info, nil
}

func (f *FileSystem) listFiles(_ context.Context, in ListInput) (result.Result, error) {
	dir := f.dir(in.Directory)
	info, err := os.Stat(dir)
	if err != nil {
		return result.Fail("Directory not found: %s", dir), nil
	}
	if !info.IsDir() {
		return result.Fail("Path is not a directory: %s", dir), nil
	}

	pattern := in.Pattern
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return result.Fail("Invalid pattern %q: %v", pattern, err), nil
	}

	var files []FileEntry
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && !in.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		// Recursive listings match the base name at any depth.
		if !g.Match(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		files = append(files, entry(p, fi))
		return nil
	})
	if err != nil {
		return result.Fail("Failed to list files: %v", err), nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	if files == nil {
		files = []FileEntry{}
	}

	f.logger.Debug().Str("dir", dir).Int("count", len(files)).Msg("listed files")
	return result.OK(map[string]any{
		"files":     files,
		"count":     len(files),
		"directory": dir,
	}), nil
}

func (f *FileSystem) readFile(_ context.Context, in FileInput) (result.Result, error) {
	path := filepath.Join(f.dir(in.Directory), in.Filename)
	info, fail := regularFile(path)
	if fail != nil {
		return *fail, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return result.Fail("Failed to read file: %v", err), nil
	}
	return result.OK(map[string]any{
		"content":    string(content),
		"file_path":  path,
		"filename":   in.Filename,
		"size_bytes": info.Size(),
	}), nil
}

func (f *FileSystem) writeFile(_ context.Context, in WriteInput) (result.Result, error) {
	name := in.Filename
	if name == "" {
		name = uuid.New().String()
	}
	ext := strings.TrimPrefix(in.Extension, ".")
	if e := filepath.Ext(name); e != "" {
		name = strings.TrimSuffix(name, e)
		if ext == "" {
			ext = strings.TrimPrefix(e, ".")
		}
	}
	if ext == "" {
		ext = "txt"
	}

	dir := f.dir(in.Directory)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result.Fail("Failed to write file: %v", err), nil
	}
	full := name + "." + ext
	path := filepath.Join(dir, full)
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return result.Fail("Failed to write file: %v", err), nil
	}

	f.logger.Info().Str("path", path).Int("bytes", len(in.Content)).Msg("wrote file")
	return result.OK(map[string]any{
		"message":    "Successfully wrote file",
		"file_path":  path,
		"filename":   full,
		"directory":  dir,
		"size_bytes": len(in.Content),
	}), nil
}

func (f *FileSystem) appendToFile(_ context.Context, in AppendInput) (result.Result, error) {
	path := filepath.Join(f.dir(in.Directory), in.Filename)
	if _, fail := regularFile(path); fail != nil {
		return *fail, nil
	}
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return result.Fail("Failed to append to file: %v", err), nil
	}
	_, werr := fh.WriteString(in.Content)
	cerr := fh.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return result.Fail("Failed to append to file: %v", err), nil
	}
	info, _ := os.Stat(path)
	var size int64
	if info != nil {
		size = info.Size()
	}
	return result.OK(map[string]any{
		"message":        "Successfully appended to file",
		"file_path":      path,
		"appended_bytes": len(in.Content),
		"new_size_bytes": size,
	}), nil
}

func (f *FileSystem) deleteFile(_ context.Context, in FileInput) (result.Result, error) {
	path := filepath.Join(f.dir(in.Directory), in.Filename)
	if _, fail := regularFile(path); fail != nil {
		return *fail, nil
	}
	if err := os.Remove(path); err != nil {
		return result.Fail("Failed to delete file: %v", err), nil
	}
	f.logger.Info().Str("path", path).Msg("deleted file")
	return result.OK(map[string]any{
		"message":   "Successfully deleted file",
		"file_path": path,
		"filename":  in.Filename,
	}), nil
}

func (f *FileSystem) fileInfo(_ context.Context, in FileInput) (result.Result, error) {
	path := filepath.Join(f.dir(in.Directory), in.Filename)
	info, fail := regularFile(path)
	if fail != nil {
		return *fail, nil
	}
	lst, err := os.Lstat(path)
	symlink := err == nil && lst.Mode()&fs.ModeSymlink != 0
	e := entry(path, info)
	return result.OK(map[string]any{
		"name":          e.Name,
		"path":          e.Path,
		"size_bytes":    e.SizeBytes,
		"extension":     e.Extension,
		"modified_time": e.ModifiedTime,
		"mode":          info.Mode().String(),
		"is_symlink":    symlink,
	}), nil
}

func entry(path string, info fs.FileInfo) FileEntry {
	e := FileEntry{
		Name:         info.Name(),
		Path:         path,
		SizeBytes:    info.Size(),
		ModifiedTime: float64(info.ModTime().UnixNano()) / 1e9,
	}
	if ext := strings.TrimPrefix(filepath.Ext(info.Name()), "."); ext != "" {
		e.Extension = &ext
	}
	return e
}
