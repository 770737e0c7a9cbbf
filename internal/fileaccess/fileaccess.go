// Package fileaccess abstracts the file system collaborator used by the
// engine: whole-file reads and writes for the active document, plus listing
// and path resolution for the open workspace folder.
package fileaccess

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"draftdesk/engine/internal/errinfo"
)

// EntryType discriminates workspace listing entries.
const (
	EntryFile = "file"
	EntryDir  = "directory"
)

// Entry is one node of a workspace listing.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Type  string `json:"type"`
	Depth int    `json:"depth"`
}

// FileAccess is the collaborator interface consumed by the engine core.
// Implementations map failures onto the errinfo taxonomy.
type FileAccess interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string) error
	List(ctx context.Context, root string) ([]Entry, error)
	Resolve(ctx context.Context, root, rel string) (string, error)
}

// MaxListDepth bounds workspace traversal, matching the recursion bound of
// the directory tree the UI renders.
const MaxListDepth = 8

// OS is the operating-system backed FileAccess.
type OS struct{}

func NewOS() *OS {
	return &OS{}
}

func (o *OS) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errinfo.FileReadFailed(err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", mapReadError(path, err)
	}
	return string(data), nil
}

// Write replaces the file atomically: content lands in a sibling temp file
// that is renamed over the target, so a failed write never truncates it.
func (o *OS) Write(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return errinfo.FileWriteFailed(err.Error())
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".draftdesk-*.tmp")
	if err != nil {
		return mapWriteError(path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return mapWriteError(path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return mapWriteError(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return mapWriteError(path, err)
	}
	return nil
}

type listFrame struct {
	entry Entry
	abs   string
}

// List walks the workspace iteratively with an explicit worklist of
// (path, depth) frames, depth-bounded by MaxListDepth. Entries come back
// in pre-order: each directory is immediately followed by its subtree,
// directories before files at every level, names sorted.
func (o *OS) List(ctx context.Context, root string) ([]Entry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errinfo.NoWorkspaceOpen()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, mapReadError(root, err)
	}
	if !info.IsDir() {
		return nil, errinfo.FileNotFound(fmt.Sprintf("%s is not a directory", root))
	}

	frames, err := childFrames(root, root, 0)
	if err != nil {
		return nil, mapReadError(root, err)
	}
	var entries []Entry
	stack := reverseFrames(frames)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errinfo.FileReadFailed(err.Error())
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		entries = append(entries, top.entry)
		if top.entry.Type != EntryDir || top.entry.Depth+1 >= MaxListDepth {
			continue
		}
		children, err := childFrames(root, top.abs, top.entry.Depth+1)
		if err != nil {
			continue // unreadable subdirectory, skip
		}
		stack = append(stack, reverseFrames(children)...)
	}
	return entries, nil
}

func childFrames(root, dir string, depth int) ([]listFrame, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sortDirEntries(children)
	frames := make([]listFrame, 0, len(children))
	for _, child := range children {
		if shouldSkip(child.Name()) {
			continue
		}
		abs := filepath.Join(dir, child.Name())
		rel, relErr := filepath.Rel(root, abs)
		if relErr != nil {
			rel = child.Name()
		}
		entryType := EntryFile
		if child.IsDir() {
			entryType = EntryDir
		}
		frames = append(frames, listFrame{
			entry: Entry{Name: child.Name(), Path: rel, Type: entryType, Depth: depth},
			abs:   abs,
		})
	}
	return frames, nil
}

// reverseFrames flips order so the stack pops frames sorted-first.
func reverseFrames(frames []listFrame) []listFrame {
	out := make([]listFrame, len(frames))
	for i, f := range frames {
		out[len(frames)-1-i] = f
	}
	return out
}

// Resolve joins rel onto root and rejects escapes above the workspace.
func (o *OS) Resolve(ctx context.Context, root, rel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errinfo.FileReadFailed(err.Error())
	}
	if strings.TrimSpace(root) == "" {
		return "", errinfo.NoWorkspaceOpen()
	}
	cleaned := filepath.Clean(filepath.Join(root, filepath.FromSlash(rel)))
	relBack, err := filepath.Rel(root, cleaned)
	if err != nil || relBack == ".." || strings.HasPrefix(relBack, ".."+string(filepath.Separator)) {
		return "", errinfo.FileAccessDenied(fmt.Sprintf("path escapes workspace: %s", rel))
	}
	if _, err := os.Stat(cleaned); err != nil {
		return "", mapReadError(cleaned, err)
	}
	return cleaned, nil
}

func sortDirEntries(entries []fs.DirEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})
}

func shouldSkip(name string) bool {
	return strings.HasPrefix(name, ".")
}

func mapReadError(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errinfo.FileNotFound(fmt.Sprintf("%s: not found", path))
	case errors.Is(err, os.ErrPermission):
		return errinfo.FileAccessDenied(fmt.Sprintf("%s: permission denied", path))
	default:
		return errinfo.FileReadFailed(fmt.Sprintf("%s: %v", path, err))
	}
}

func mapWriteError(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return errinfo.FileAccessDenied(fmt.Sprintf("%s: permission denied", path))
	default:
		return errinfo.FileWriteFailed(fmt.Sprintf("%s: %v", path, err))
	}
}
