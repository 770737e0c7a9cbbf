// Package dispatch executes named tool operations against the active
// document and workspace. Every tool validates its preconditions before
// touching state; a failed mutating tool leaves the document at its
// pre-call content and emits an error event.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"draftdesk/engine/internal/document"
	"draftdesk/engine/internal/errinfo"
	"draftdesk/engine/internal/event"
	"draftdesk/engine/internal/fileaccess"
	"draftdesk/engine/internal/llm"
	"draftdesk/engine/internal/logging"
	"draftdesk/engine/internal/retry"
)

// MatchResult is one grep hit. Line and Column are 1-based.
type MatchResult struct {
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	MatchText   string `json:"match_text"`
	ContextLine string `json:"context_line"`
}

// ExecContext carries the collaborators a tool call runs against: the
// active document store, the snapshot recorder, file access, and the
// workspace root (empty when no folder is open).
type ExecContext struct {
	Store     *document.Store
	Recorder  document.SnapshotRecorder
	Files     fileaccess.FileAccess
	Bus       *event.Bus
	Workspace string
}

// Dispatcher routes tool calls to their implementations.
type Dispatcher struct {
	logger   *slog.Logger
	ioPolicy retry.Policy
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithIOPolicy(policy retry.Policy) Option {
	return func(d *Dispatcher) { d.ioPolicy = policy }
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:   logging.Nop(),
		ioPolicy: retry.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs one tool call and returns the result as a string. Unknown
// tool names fail; both the simplified and legacy names are accepted.
func (d *Dispatcher) Execute(ctx context.Context, call llm.ToolCall, ec ExecContext) (string, error) {
	d.logger.Info("tool.execute", "name", call.Function.Name, "call_id", call.ID)
	result, err := d.dispatch(ctx, call, ec)
	if err != nil {
		d.logger.Warn("tool.failed", "name", call.Function.Name, "error", err.Error())
		if mutating(call.Function.Name) && ec.Bus != nil {
			ec.Bus.Publish(event.Error(errinfo.From(err).Error()))
		}
		return "", err
	}
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, call llm.ToolCall, ec ExecContext) (string, error) {
	args := call.Function.Arguments
	switch call.Function.Name {
	case "read":
		return d.read(ec)
	case "write":
		return d.write(ec, gjson.Get(args, "text").String(), call.ID)
	case "replace":
		return d.replace(ec, gjson.Get(args, "target").String(), gjson.Get(args, "replacement").String(), call.ID)
	case "grep":
		return d.grep(ec, gjson.Get(args, "pattern").String(), gjson.Get(args, "case_sensitive").Bool())
	case "ls":
		return d.ls(ctx, ec)
	case "read_workspace_file":
		return d.readWorkspaceFile(ctx, ec, gjson.Get(args, "path").String())
	case "read_file":
		return d.legacyReadFile(ec)
	case "write_append":
		return d.legacyWriteAppend(ec, gjson.Get(args, "text").String(), call.ID)
	case "find_replace":
		return d.legacyFindReplace(ec, gjson.Get(args, "find").String(), gjson.Get(args, "replace").String(), call.ID)
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Function.Name)
	}
}

func mutating(name string) bool {
	switch name {
	case "write", "replace", "write_append", "find_replace":
		return true
	}
	return false
}

func (d *Dispatcher) read(ec ExecContext) (string, error) {
	if !ec.Store.Loaded() {
		return "", errinfo.NoDocumentLoaded()
	}
	return ec.Store.Content(), nil
}

func (d *Dispatcher) write(ec ExecContext, text, callID string) (string, error) {
	updated, err := ec.Store.Append(text)
	if err != nil {
		return "", err
	}
	if ec.Recorder != nil {
		ec.Recorder.Record(updated, document.TriggerToolExecution, callID)
	}
	return updated, nil
}

func (d *Dispatcher) replace(ec ExecContext, target, replacement, callID string) (string, error) {
	if target == "" {
		return "", errinfo.TargetNotFound("target is required")
	}
	updated, err := ec.Store.ReplaceFirst(target, replacement)
	if err != nil {
		return "", err
	}
	if ec.Recorder != nil {
		ec.Recorder.Record(updated, document.TriggerToolExecution, callID)
	}
	return updated, nil
}

// grepChunkLines bounds the working set per pass on very large documents.
const grepChunkLines = 1000

func (d *Dispatcher) grep(ec ExecContext, pattern string, caseSensitive bool) (string, error) {
	if !ec.Store.Loaded() {
		return "", errinfo.NoDocumentLoaded()
	}
	if pattern == "" {
		return "", errinfo.InvalidPattern("pattern is required")
	}
	matches, err := grepContent(ec.Store.Content(), pattern, caseSensitive)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(matches)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func grepContent(content, pattern string, caseSensitive bool) ([]MatchResult, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errinfo.InvalidPattern(fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}

	lines := strings.Split(content, "\n")
	matches := []MatchResult{}
	for chunkStart := 0; chunkStart < len(lines); chunkStart += grepChunkLines {
		chunkEnd := chunkStart + grepChunkLines
		if chunkEnd > len(lines) {
			chunkEnd = len(lines)
		}
		for i := chunkStart; i < chunkEnd; i++ {
			line := lines[i]
			// Scan position resets per line; a zero-width match advances
			// explicitly so the scan cannot loop forever.
			pos := 0
			for pos <= len(line) {
				loc := re.FindStringIndex(line[pos:])
				if loc == nil {
					break
				}
				start, end := pos+loc[0], pos+loc[1]
				matches = append(matches, MatchResult{
					Line:        i + 1,
					Column:      start + 1,
					MatchText:   line[start:end],
					ContextLine: line,
				})
				if end == start {
					pos = end + 1
				} else {
					pos = end
				}
			}
		}
	}
	return matches, nil
}

func (d *Dispatcher) ls(ctx context.Context, ec ExecContext) (string, error) {
	if ec.Workspace == "" {
		return "", errinfo.NoWorkspaceOpen()
	}
	var entries []fileaccess.Entry
	err := retry.Do(ctx, d.ioPolicy, func() error {
		var listErr error
		entries, listErr = ec.Files.List(ctx, ec.Workspace)
		return listErr
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(strings.Repeat("  ", entry.Depth))
		b.WriteString(entry.Name)
		if entry.Type == fileaccess.EntryDir {
			b.WriteString("/")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (d *Dispatcher) readWorkspaceFile(ctx context.Context, ec ExecContext, path string) (string, error) {
	if ec.Workspace == "" {
		return "", errinfo.NoWorkspaceOpen()
	}
	if path == "" {
		return "", errinfo.FileNotFound("path is required")
	}
	resolved, err := ec.Files.Resolve(ctx, ec.Workspace, path)
	if err != nil {
		return "", err
	}
	var content string
	err = retry.Do(ctx, d.ioPolicy, func() error {
		var readErr error
		content, readErr = ec.Files.Read(ctx, resolved)
		return readErr
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (d *Dispatcher) legacyReadFile(ec ExecContext) (string, error) {
	content, err := d.read(ec)
	if err != nil {
		return "", err
	}
	out, _ := sjson.Set("{}", "content", content)
	return out, nil
}

func (d *Dispatcher) legacyWriteAppend(ec ExecContext, text, callID string) (string, error) {
	updated, err := d.write(ec, text, callID)
	if err != nil {
		return "", err
	}
	out, _ := sjson.Set("{}", "success", true)
	out, _ = sjson.Set(out, "length", len(updated))
	return out, nil
}

// legacyFindReplace keeps the old result shape: an absent target reports
// {success:false, replacements:0} instead of failing the call.
func (d *Dispatcher) legacyFindReplace(ec ExecContext, find, replace, callID string) (string, error) {
	_, err := d.replace(ec, find, replace, callID)
	if err != nil {
		if errinfo.From(err).ErrorCode == errinfo.CodeTargetNotFound {
			out, _ := sjson.Set("{}", "success", false)
			out, _ = sjson.Set(out, "replacements", 0)
			return out, nil
		}
		return "", err
	}
	out, _ := sjson.Set("{}", "success", true)
	out, _ = sjson.Set(out, "replacements", 1)
	return out, nil
}
