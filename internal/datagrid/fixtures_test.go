package datagrid

import (
	"github.com/google/uuid"

	"github.com/atlekbai/datagrid/internal/schema"
)

// Stable IDs so lookups between fixtures resolve.
var (
	postsID       = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	usersID       = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	companiesID   = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	commentsID    = uuid.MustParse("00000000-0000-0000-0000-000000000004")
	membershipsID = uuid.MustParse("00000000-0000-0000-0000-000000000005")
)

func textField(apiName, col string) schema.FieldDef {
	return schema.FieldDef{ID: uuid.New(), APIName: apiName, Title: apiName, Type: schema.FieldText, StorageColumn: new(col)}
}

func lookupField(apiName, col string, target uuid.UUID) schema.FieldDef {
	return schema.FieldDef{ID: uuid.New(), APIName: apiName, Title: apiName, Type: schema.FieldLookup, StorageColumn: new(col), LookupObjectID: new(target)}
}

func testCatalog() *schema.Cache {
	posts := &schema.ObjectDef{
		ID: postsID, APIName: "posts", Title: "Post",
		StorageSchema: new("blog"), StorageTable: new("posts"),
		Fields: []schema.FieldDef{
			textField("title", "title"),
			textField("summary", "summary_text"),
			lookupField("author", "author_id", usersID),
			lookupField("author_company", "author_company_id", companiesID),
			{ID: uuid.New(), APIName: "comments", Title: "comments", Type: schema.FieldCollection, LookupObjectID: new(commentsID), MappedBy: new("post")},
		},
	}
	users := &schema.ObjectDef{
		ID: usersID, APIName: "users", Title: "User",
		StorageSchema: new("blog"), StorageTable: new("users"),
		Fields: []schema.FieldDef{
			textField("name", "name"),
			lookupField("company", "company_id", companiesID),
		},
	}
	companies := &schema.ObjectDef{
		ID: companiesID, APIName: "companies", Title: "Company",
		StorageSchema: new("blog"), StorageTable: new("companies"),
		Fields: []schema.FieldDef{
			textField("name", "name"),
		},
	}
	comments := &schema.ObjectDef{
		ID: commentsID, APIName: "comments", Title: "Comment",
		StorageSchema: new("blog"), StorageTable: new("comments"),
		Fields: []schema.FieldDef{
			textField("body", "body"),
			lookupField("post", "post_id", postsID),
		},
	}
	memberships := &schema.ObjectDef{
		ID: membershipsID, APIName: "memberships", Title: "Membership",
		StorageSchema: new("blog"), StorageTable: new("memberships"),
		IdentifierFields: []string{"user", "company"},
		Fields: []schema.FieldDef{
			lookupField("user", "user_id", usersID),
			lookupField("company", "company_id", companiesID),
		},
	}
	return schema.NewCacheFromObjects(posts, users, companies, comments, memberships)
}

// newProxy returns a proxy over entity aliased "o".
func newProxy(cache *schema.Cache, entity string) *ProxyQuery {
	return NewProxyQuery(NewBuilder(cache, entity, "o"), cache)
}

// queryParts renders joins and predicates the way they are written into the builder.
func queryParts(pq *ProxyQuery) []string {
	qb := pq.QueryBuilder()
	var parts []string
	for _, j := range qb.Joins() {
		parts = append(parts, j.String())
	}
	for _, w := range qb.Wheres() {
		parts = append(parts, "WHERE "+w)
	}
	return parts
}
