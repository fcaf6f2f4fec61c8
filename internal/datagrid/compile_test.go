package datagrid

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestFinalizeSQL(t *testing.T) {
	pq := newProxy(testCatalog(), "posts")
	qb := pq.QueryBuilder()
	qb.AndWhere("o.title LIKE :title_0")
	qb.SetParameter("title_0", "%go%")
	if err := pq.SetSort(nil, "title", "asc"); err != nil {
		t.Fatal(err)
	}
	if err := pq.SetPageWindow(20, 10); err != nil {
		t.Fatal(err)
	}

	q, err := pq.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	want := `SELECT to_jsonb("o".*) AS _row FROM "blog"."posts" AS "o" WHERE "o"."title" LIKE $1 ORDER BY "o"."title" ASC, "o"."id" ASC LIMIT 10 OFFSET 20`
	if q.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", q.SQL, want)
	}
	if !slices.Equal(q.Args, []any{"%go%"}) {
		t.Fatalf("unexpected args %v", q.Args)
	}
}

func TestFinalizeJoins(t *testing.T) {
	pq := newProxy(testCatalog(), "posts")
	alias, err := pq.EntityJoin([]string{"author", "company"})
	if err != nil {
		t.Fatal(err)
	}
	pq.QueryBuilder().AndWhere(alias + ".name = :name_0")
	pq.QueryBuilder().SetParameter("name_0", "Acme")

	q, err := pq.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	for _, frag := range []string{
		`LEFT JOIN "blog"."users" AS "s_author" ON "s_author"."id" = "o"."author_id"`,
		`LEFT JOIN "blog"."companies" AS "s_author_company" ON "s_author_company"."id" = "s_author"."company_id"`,
		`WHERE "s_author_company"."name" = $1`,
	} {
		if !strings.Contains(q.SQL, frag) {
			t.Errorf("expected %q in %s", frag, q.SQL)
		}
	}
}

func TestFinalizeCollectionJoin(t *testing.T) {
	pq := newProxy(testCatalog(), "posts")
	alias, err := pq.EntityJoin([]string{"comments"})
	if err != nil {
		t.Fatal(err)
	}
	pq.QueryBuilder().AndWhere(alias + ".body LIKE :body_0")
	pq.QueryBuilder().SetParameter("body_0", "%nice%")
	if err := pq.SetSort(nil, "title", "desc"); err != nil {
		t.Fatal(err)
	}
	if err := pq.SetPageWindow(0, 10); err != nil {
		t.Fatal(err)
	}

	q, err := pq.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	// A post with several matching comments must fill one page slot.
	page := `SELECT DISTINCT ON ("o"."id") "o"."id" AS _id0, ("o"."title") AS _s0, ("o"."id") AS _s1` +
		` FROM "blog"."posts" AS "o"` +
		` LEFT JOIN "blog"."comments" AS "s_comments" ON "s_comments"."post_id" = "o"."id"` +
		` WHERE "s_comments"."body" LIKE $1` +
		` ORDER BY "o"."id", "o"."title" DESC, "o"."id" DESC`
	want := `SELECT to_jsonb("o".*) AS _row FROM "blog"."posts" AS "o"` +
		` JOIN (` + page + `) AS "_page" ON "_page"."_id0" = "o"."id"` +
		` ORDER BY "_page"."_s0" DESC, "_page"."_s1" DESC LIMIT 10`
	if q.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", q.SQL, want)
	}
	if !slices.Equal(q.Args, []any{"%nice%"}) {
		t.Fatalf("unexpected args %v", q.Args)
	}

	count, err := pq.FinalizeCount()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(count.SQL, `SELECT count(DISTINCT "o"."id") FROM "blog"."posts" AS "o" LEFT JOIN "blog"."comments"`) {
		t.Fatalf("unexpected count SQL %s", count.SQL)
	}
}

func TestFinalizeLookupJoinKeepsFlatPage(t *testing.T) {
	pq := newProxy(testCatalog(), "posts")
	if err := pq.SetSort([]string{"author"}, "name", "asc"); err != nil {
		t.Fatal(err)
	}

	q, err := pq.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT to_jsonb("o".*) AS _row FROM "blog"."posts" AS "o"` +
		` LEFT JOIN "blog"."users" AS "s_author" ON "s_author"."id" = "o"."author_id"` +
		` ORDER BY "s_author"."name" ASC, "o"."id" ASC`
	if q.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", q.SQL, want)
	}
}

func TestFinalizeParenthesizesPredicates(t *testing.T) {
	pq := newProxy(testCatalog(), "posts")
	qb := pq.QueryBuilder()
	qb.AndWhere("o.title NOT LIKE :title_0 OR o.title IS NULL")
	qb.SetParameter("title_0", "%draft%")
	qb.AndWhere("LOWER(o.summary) = :summary_1")
	qb.SetParameter("summary_1", "short")

	q, err := pq.Finalize()
	if err != nil {
		t.Fatal(err)
	}

	frag := `WHERE ("o"."title" NOT LIKE $1 OR "o"."title" IS NULL) AND (LOWER("o"."summary_text") = $2)`
	if !strings.Contains(q.SQL, frag) {
		t.Fatalf("expected %q in %s", frag, q.SQL)
	}
	if !slices.Equal(q.Args, []any{"%draft%", "short"}) {
		t.Fatalf("unexpected args %v", q.Args)
	}
}

func TestFinalizeCount(t *testing.T) {
	cache := testCatalog()

	pq := newProxy(cache, "posts")
	pq.QueryBuilder().AndWhere("o.title = :title_0")
	pq.QueryBuilder().SetParameter("title_0", "Hello")
	if err := pq.SetSort(nil, "title", "DESC"); err != nil {
		t.Fatal(err)
	}
	if err := pq.SetPageWindow(10, 10); err != nil {
		t.Fatal(err)
	}

	q, err := pq.FinalizeCount()
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT count(DISTINCT "o"."id") FROM "blog"."posts" AS "o" WHERE "o"."title" = $1`
	if q.SQL != want {
		t.Fatalf("unexpected SQL:\n got: %s\nwant: %s", q.SQL, want)
	}

	composite, err := newProxy(cache, "memberships").FinalizeCount()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(composite.SQL, `count(DISTINCT ("o"."user_id", "o"."company_id"))`) {
		t.Fatalf("unexpected composite count %s", composite.SQL)
	}
}

func TestFinalizeUnknownEntity(t *testing.T) {
	cache := testCatalog()
	qb := NewBuilder(cache, "nope", "o")

	if _, err := qb.ToQuery(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFinalizeUnboundParameter(t *testing.T) {
	pq := newProxy(testCatalog(), "posts")
	pq.QueryBuilder().AndWhere("o.title = :missing")

	if _, err := pq.Finalize(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBindNamed(t *testing.T) {
	params := map[string]any{"p_0": "x", "p_1": 2}

	tests := []struct {
		in   string
		want string
		args []any
	}{
		{"a = :p_0", "a = ?", []any{"x"}},
		{"a::text = :p_0 AND b > :p_1", "a::text = ? AND b > ?", []any{"x", 2}},
		{"a = ':p_0'", "a = ':p_0'", nil},
		{"a ? 'k' AND b = :p_1", "a ?? 'k' AND b = ?", []any{2}},
		{"BINARY(:p_0)", "BINARY(?)", []any{"x"}},
	}
	for _, tt := range tests {
		got, args, err := bindNamed(tt.in, params)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if got != tt.want || !slices.Equal(args, tt.args) {
			t.Errorf("%q: expected %q %v, got %q %v", tt.in, tt.want, tt.args, got, args)
		}
	}
}
