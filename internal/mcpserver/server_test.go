package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/veleda/ansuz/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(store), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_subjects":
		result, err = srv.listSubjects(ctx, req)
	case "read_subject":
		result, err = srv.readSubject(ctx, req)
	case "create_subject":
		result, err = srv.createSubject(ctx, req)
	case "update_subject":
		result, err = srv.updateSubject(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadSubject(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_subject", map[string]interface{}{
		"name":    "physics",
		"content": "# Physics\nHello",
	})
	if text := resultText(r); text != "created: physics" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_subject", map[string]interface{}{
		"name": "physics",
	})
	if text := resultText(r); text != "# Physics\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateDuplicateSubject(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("physics", []byte("v1"))

	r := callTool(t, srv, "create_subject", map[string]interface{}{
		"name":    "physics",
		"content": "v2",
	})
	if !r.IsError {
		t.Error("expected error for duplicate subject")
	}
	data, _ := store.Read("physics")
	if string(data) != "v1" {
		t.Errorf("content = %q, duplicate create must not overwrite", data)
	}
}

func TestUpdateSubject(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("physics", []byte("v1"))

	r := callTool(t, srv, "update_subject", map[string]interface{}{
		"name":    "physics",
		"content": "v2",
	})
	if text := resultText(r); text != "updated: physics" {
		t.Errorf("update result = %q", text)
	}
	data, _ := store.Read("physics")
	if string(data) != "v2" {
		t.Errorf("content = %q", data)
	}
}

func TestUpdateMissingSubject(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "update_subject", map[string]interface{}{
		"name":    "ghost",
		"content": "x",
	})
	if !r.IsError {
		t.Error("expected error for missing subject")
	}
}

func TestListSubjects(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("alpha", []byte("a"))
	_ = store.Write("beta", []byte("b"))

	r := callTool(t, srv, "list_subjects", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "alpha") || !strings.Contains(text, "beta") {
		t.Errorf("list = %q", text)
	}
}

func TestReadSubjectMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_subject", map[string]interface{}{"name": "nope"})
	if !r.IsError {
		t.Error("expected error for missing subject")
	}
}
