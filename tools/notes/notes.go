// Package notes provides the tools to save, read, list and delete note files.
package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/invopop/jsonschema"
)

// Tool names
const (
	SaveToolName   = "save_note_to_file"
	ReadToolName   = "read_note_from_file"
	ListToolName   = "list_note_files"
	DeleteToolName = "delete_note_file"
)

// SaveRequest represents the save_note_to_file input.
type SaveRequest struct {
	Content  string `json:"content" yaml:"Content" jsonschema:"title=Content,description=The note content to save."`
	Filename string `json:"filename,omitempty" yaml:"Filename" jsonschema:"title=Filename,description=Optional file name. If not provided a timestamp name is used. Names without .txt or .md or .json extension get .txt appended."`
}

// FileRequest represents the input of the tools working with one file.
type FileRequest struct {
	Filename string `json:"filename" yaml:"Filename" jsonschema:"title=Filename,description=Name of the file with or without extension."`
}

// ListRequest represents the list_note_files input.
type ListRequest struct{}

// SaveResult is returned by save_note_to_file.
type SaveResult struct {
	Path string
}

func (r *SaveResult) String() string {
	return "Note saved successfully to: " + r.Path
}

// ReadResult is returned by read_note_from_file.
type ReadResult struct {
	Filename string
	Content  string
}

func (r *ReadResult) String() string {
	return fmt.Sprintf("Content of %s:\n\n%s", r.Filename, r.Content)
}

// ListResult is returned by list_note_files.
type ListResult struct {
	Files []FileInfo
}

func (r *ListResult) String() string {
	if len(r.Files) == 0 {
		return "No note files found in the notes directory."
	}
	var b strings.Builder
	b.WriteString("Available note files:")
	for i, f := range r.Files {
		fmt.Fprintf(&b, "\n%d. %s (%d bytes, modified: %s)",
			i+1, f.Name, f.Size, f.Modified.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// DeleteResult is returned by delete_note_file.
type DeleteResult struct {
	Filename string
}

func (r *DeleteResult) String() string {
	return fmt.Sprintf("File '%s' deleted successfully", r.Filename)
}

var (
	saveSchema = schema.MustFor[SaveRequest]().Parameters
	fileSchema = schema.MustFor[FileRequest]().Parameters
	listSchema = schema.MustFor[ListRequest]().Parameters
)

// Tools returns the four note tools over the store.
func Tools(s *Store) []tools.ITool {
	return []tools.ITool{
		NewSaveTool(s),
		NewReadTool(s),
		NewListTool(s),
		NewDeleteTool(s),
	}
}

func invalidName(err error, name string) error {
	if errors.Is(err, ErrInvalidName) {
		return tools.Errorf(tools.KindValidation, "Error: Invalid file name '%s'", name)
	}
	return nil
}

// SaveTool is the save_note_to_file tool
type SaveTool struct {
	store *Store
}

var _ tools.Tool[SaveRequest, SaveResult] = (*SaveTool)(nil)

// NewSaveTool returns the save_note_to_file tool.
func NewSaveTool(s *Store) *SaveTool {
	return &SaveTool{store: s}
}

func (t *SaveTool) Name() string {
	return SaveToolName
}

func (t *SaveTool) Description() string {
	return "Save note content to a file. If filename is not provided, generates one with timestamp. " +
		"If the filename is provided without extension, .txt is added, otherwise it is used as is."
}

func (t *SaveTool) Parameters() *jsonschema.Schema {
	return saveSchema
}

func (t *SaveTool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *SaveTool) Run(_ context.Context, req *SaveRequest) (*SaveResult, error) {
	name := strings.TrimSpace(req.Filename)
	path, err := t.store.Save(name, req.Content)
	if err != nil {
		if verr := invalidName(err, name); verr != nil {
			return nil, verr
		}
		return nil, tools.Wrap(tools.KindInternal, err, "Error saving note")
	}
	return &SaveResult{Path: path}, nil
}

// ReadTool is the read_note_from_file tool
type ReadTool struct {
	store *Store
}

var _ tools.Tool[FileRequest, ReadResult] = (*ReadTool)(nil)

// NewReadTool returns the read_note_from_file tool.
func NewReadTool(s *Store) *ReadTool {
	return &ReadTool{store: s}
}

func (t *ReadTool) Name() string {
	return ReadToolName
}

func (t *ReadTool) Description() string {
	return "Read content from a note file. The filename can be given with or without extension."
}

func (t *ReadTool) Parameters() *jsonschema.Schema {
	return fileSchema
}

func (t *ReadTool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *ReadTool) Run(_ context.Context, req *FileRequest) (*ReadResult, error) {
	name := NormalizeName(strings.TrimSpace(req.Filename))
	content, err := t.store.Read(name)
	if err != nil {
		if verr := invalidName(err, name); verr != nil {
			return nil, verr
		}
		if errors.Is(err, ErrNotFound) {
			return nil, tools.Errorf(tools.KindNotFound, "Error: File '%s' not found in notes directory", name)
		}
		return nil, tools.Wrap(tools.KindInternal, err, "Error reading file")
	}
	return &ReadResult{Filename: name, Content: content}, nil
}

// ListTool is the list_note_files tool
type ListTool struct {
	store *Store
}

var _ tools.Tool[ListRequest, ListResult] = (*ListTool)(nil)

// NewListTool returns the list_note_files tool.
func NewListTool(s *Store) *ListTool {
	return &ListTool{store: s}
}

func (t *ListTool) Name() string {
	return ListToolName
}

func (t *ListTool) Description() string {
	return "List all note files in the notes directory, most recently modified first."
}

func (t *ListTool) Parameters() *jsonschema.Schema {
	return listSchema
}

// Call ignores the input, the tool has no parameters.
func (t *ListTool) Call(ctx context.Context, _ string) (string, error) {
	out, err := t.Run(ctx, &ListRequest{})
	return tools.Render(ctx, t.Name(), out, err)
}

func (t *ListTool) Run(_ context.Context, _ *ListRequest) (*ListResult, error) {
	files, err := t.store.List()
	if err != nil {
		return nil, tools.Wrap(tools.KindInternal, err, "Error listing files")
	}
	return &ListResult{Files: files}, nil
}

// DeleteTool is the delete_note_file tool
type DeleteTool struct {
	store *Store
}

var _ tools.Tool[FileRequest, DeleteResult] = (*DeleteTool)(nil)

// NewDeleteTool returns the delete_note_file tool.
func NewDeleteTool(s *Store) *DeleteTool {
	return &DeleteTool{store: s}
}

func (t *DeleteTool) Name() string {
	return DeleteToolName
}

func (t *DeleteTool) Description() string {
	return "Delete a note file. The filename can be given with or without extension."
}

func (t *DeleteTool) Parameters() *jsonschema.Schema {
	return fileSchema
}

func (t *DeleteTool) Call(ctx context.Context, input string) (string, error) {
	return tools.Invoke(ctx, t, input)
}

func (t *DeleteTool) Run(_ context.Context, req *FileRequest) (*DeleteResult, error) {
	name := NormalizeName(strings.TrimSpace(req.Filename))
	if err := t.store.Delete(name); err != nil {
		if verr := invalidName(err, name); verr != nil {
			return nil, verr
		}
		if errors.Is(err, ErrNotFound) {
			return nil, tools.Errorf(tools.KindNotFound, "Error: File '%s' not found", name)
		}
		return nil, tools.Wrap(tools.KindInternal, err, "Error deleting file")
	}
	return &DeleteResult{Filename: name}, nil
}
