package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulantoine/coursemate/internal/course"
	"github.com/paulantoine/coursemate/internal/generation"
	"github.com/paulantoine/coursemate/internal/log"
	"github.com/paulantoine/coursemate/internal/session"
	"github.com/paulantoine/coursemate/internal/testutil"
	"github.com/paulantoine/coursemate/internal/tools"
	"github.com/paulantoine/coursemate/internal/vectorstore"
)

const ragDoc = `Course Title: Building RAG Applications
Course Link: https://example.com/rag
Course Instructor: Ada Lovelace
Lesson 0: Introduction
Lesson Link: https://example.com/rag/lesson/0
Retrieval augmented generation combines search with language models. This lesson introduces the core pipeline.
Lesson 1: Embeddings
Lesson Link: https://example.com/rag/lesson/1
Embeddings map text into vectors. Similar texts land close together in the vector space.
`

const vectorDoc = `Course Title: Vector Databases
Course Link: https://example.com/vectordb
Lesson 0: Storage Layouts
Persistent indexes keep chunk data on disk. Collections group related entries.
`

// fixture bundles the real pipeline components around a scripted model.
type fixture struct {
	system   *System
	store    *vectorstore.Store
	manager  *tools.Manager
	sessions *session.Store
	docs     string
}

func newFixture(t *testing.T, model generation.Model, docFiles map[string]string) *fixture {
	t.Helper()
	logger := log.NewNop()

	store, err := vectorstore.New(t.TempDir(), testutil.HashEmbeddingFunc(256),
		vectorstore.WithMinResolveSimilarity(0.5),
		vectorstore.WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("vectorstore.New failed: %v", err)
	}

	manager := tools.NewManager(logger,
		tools.NewCourseSearchTool(store),
		tools.NewCourseOutlineTool(store),
	)

	docs := t.TempDir()
	for name, content := range docFiles {
		if err := os.WriteFile(filepath.Join(docs, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing doc fixture: %v", err)
		}
	}

	sessions := session.NewStore(2, logger)
	system := New(
		course.NewProcessor(800, 100),
		store,
		manager,
		generation.NewOrchestrator(model, generation.WithOrchestratorLogger(logger)),
		sessions,
		logger,
	)
	return &fixture{system: system, store: store, manager: manager, sessions: sessions, docs: docs}
}

func TestSystem_IngestFolder(t *testing.T) {
	f := newFixture(t, &testutil.ScriptedModel{}, map[string]string{
		"rag.txt":    ragDoc,
		"vector.txt": vectorDoc,
	})

	courses, chunks, err := f.system.IngestFolder(context.Background(), f.docs, false)
	if err != nil {
		t.Fatalf("IngestFolder failed: %v", err)
	}
	if courses != 2 {
		t.Errorf("courses added = %d", courses)
	}
	if chunks != f.store.ChunkCount() {
		t.Errorf("chunk count mismatch: reported %d, stored %d", chunks, f.store.ChunkCount())
	}

	analytics := f.system.GetAnalytics()
	if analytics.TotalCourses != 2 {
		t.Errorf("TotalCourses = %d", analytics.TotalCourses)
	}
	want := []string{"Building RAG Applications", "Vector Databases"}
	for i, title := range want {
		if analytics.CourseTitles[i] != title {
			t.Errorf("CourseTitles[%d] = %q, want %q", i, analytics.CourseTitles[i], title)
		}
	}
}

func TestSystem_IngestFolder_SkipsMalformedDocument(t *testing.T) {
	f := newFixture(t, &testutil.ScriptedModel{}, map[string]string{
		"good.txt": ragDoc,
		"bad.txt":  "no course title header here. just text.\n",
	})

	courses, _, err := f.system.IngestFolder(context.Background(), f.docs, false)
	if err != nil {
		t.Fatalf("one malformed document must not abort the batch: %v", err)
	}
	if courses != 1 {
		t.Errorf("courses added = %d, want 1", courses)
	}
}

// Re-ingesting without clearExisting must short-circuit on existing
// titles and leave the content index untouched.
func TestSystem_IngestFolder_Idempotent(t *testing.T) {
	f := newFixture(t, &testutil.ScriptedModel{}, map[string]string{"rag.txt": ragDoc})
	ctx := context.Background()

	if _, _, err := f.system.IngestFolder(ctx, f.docs, false); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	before := f.store.ChunkCount()

	courses, chunks, err := f.system.IngestFolder(ctx, f.docs, false)
	if err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}
	if courses != 0 || chunks != 0 {
		t.Errorf("second ingest must skip existing courses, added %d/%d", courses, chunks)
	}
	if f.store.ChunkCount() != before {
		t.Errorf("chunk count changed: %d -> %d", before, f.store.ChunkCount())
	}
}

func TestSystem_IngestFolder_ClearExisting(t *testing.T) {
	f := newFixture(t, &testutil.ScriptedModel{}, map[string]string{"rag.txt": ragDoc})
	ctx := context.Background()

	if _, _, err := f.system.IngestFolder(ctx, f.docs, false); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}

	courses, _, err := f.system.IngestFolder(ctx, f.docs, true)
	if err != nil {
		t.Fatalf("rebuild ingest failed: %v", err)
	}
	if courses != 1 {
		t.Errorf("rebuild must re-add the course, added %d", courses)
	}
	if f.system.GetAnalytics().TotalCourses != 1 {
		t.Errorf("TotalCourses = %d after rebuild", f.system.GetAnalytics().TotalCourses)
	}
}

// The model searches without a course filter; the answer carries the
// sources of the chunks actually retrieved, most relevant first.
func TestSystem_Query_SearchFlow(t *testing.T) {
	model := testutil.SearchCallModel(
		map[string]any{"query": "embeddings map vectors"},
		"Lesson 1 covers embeddings.",
	)
	f := newFixture(t, model, map[string]string{"rag.txt": ragDoc})
	ctx := context.Background()

	if _, _, err := f.system.IngestFolder(ctx, f.docs, false); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	answer, sources, err := f.system.Query(ctx, "What is covered in lesson 1?", "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if answer != "Lesson 1 covers embeddings." {
		t.Errorf("answer = %q", answer)
	}

	if len(sources) == 0 {
		t.Fatal("expected sources from the search tool")
	}
	if sources[0].Text != "Building RAG Applications - Lesson 1" {
		t.Errorf("best source = %q", sources[0].Text)
	}
	if sources[0].Link != "https://example.com/rag/lesson/1" {
		t.Errorf("best source link = %q", sources[0].Link)
	}

	// Sources are drained exactly once per query.
	if leftover := f.manager.DrainSources(); len(leftover) != 0 {
		t.Errorf("sources leaked past the query: %+v", leftover)
	}
}

// A query naming a course that does not exist yields the explanatory
// tool result and no sources.
func TestSystem_Query_NonexistentCourse(t *testing.T) {
	model := testutil.SearchCallModel(
		map[string]any{"query": "anything", "course_name": "Quantum Basketweaving Mastery"},
		"No course by that name was found.",
	)
	f := newFixture(t, model, map[string]string{"rag.txt": ragDoc})
	ctx := context.Background()

	if _, _, err := f.system.IngestFolder(ctx, f.docs, false); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	answer, sources, err := f.system.Query(ctx, "What does Quantum Basketweaving Mastery cover?", "")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if answer != "No course by that name was found." {
		t.Errorf("answer = %q", answer)
	}
	if len(sources) != 0 {
		t.Errorf("resolution miss must yield no sources, got %+v", sources)
	}

	// The model saw the explanatory text, not a fault.
	final := model.Requests[1]
	tr := final.Messages[2].ToolResults
	if len(tr) != 1 || tr[0].Content != "No course found matching 'Quantum Basketweaving Mastery'" {
		t.Errorf("tool result = %+v", tr)
	}
}

func TestSystem_Query_SessionHistory(t *testing.T) {
	model := &testutil.ScriptedModel{Responses: []*generation.Response{
		{Text: "first answer"},
		{Text: "second answer"},
	}}
	f := newFixture(t, model, nil)
	ctx := context.Background()

	id := f.system.CreateSession()
	if _, _, err := f.system.Query(ctx, "first question", id); err != nil {
		t.Fatalf("first query failed: %v", err)
	}
	if _, _, err := f.system.Query(ctx, "second question", id); err != nil {
		t.Fatalf("second query failed: %v", err)
	}

	system := model.Requests[1].System
	if !strings.Contains(system, "User: first question") || !strings.Contains(system, "Assistant: first answer") {
		t.Errorf("second query must carry the prior exchange:\n%s", system)
	}
}

func TestSystem_Query_GenerationErrorPropagates(t *testing.T) {
	model := &testutil.ScriptedModel{Err: errors.New("api down")}
	f := newFixture(t, model, nil)

	id := f.system.CreateSession()
	_, _, err := f.system.Query(context.Background(), "question", id)
	if err == nil {
		t.Fatal("expected error")
	}
	var genErr *generation.GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("expected GenerationError, got %v", err)
	}

	// A failed query must not pollute the session history.
	if turns := f.sessions.History(id); len(turns) != 0 {
		t.Errorf("failed query recorded in history: %+v", turns)
	}
}

func TestSystem_ClearSession(t *testing.T) {
	model := &testutil.ScriptedModel{Responses: []*generation.Response{
		{Text: "first answer"},
		{Text: "second answer"},
	}}
	f := newFixture(t, model, nil)
	ctx := context.Background()

	id := f.system.CreateSession()
	if _, _, err := f.system.Query(ctx, "remember this", id); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	f.system.ClearSession(id)

	if _, _, err := f.system.Query(ctx, "what did I say?", id); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if strings.Contains(model.Requests[1].System, "remember this") {
		t.Error("cleared session history still reached the model")
	}
}
