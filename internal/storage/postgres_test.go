package storage

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestLikePrefixEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"users/42/":          "users/42/%",
		"users/4_2/facts/":   `users/4\_2/facts/%`,
		"users/42/facts/50%": `users/42/facts/50\%%`,
		`users/a\b/`:         `users/a\\b/%`,
		"":                   "%",
	}
	for in, want := range cases {
		require.Equal(t, want, likePrefix(in), in)
	}
}

func TestVectorFilterUsesOwnerColumn(t *testing.T) {
	filter, arg := vectorFilter("42:")
	require.Equal(t, "owner = ?", filter)
	require.Equal(t, "42:", arg)

	filter, arg = vectorFilter("42:cid")
	require.Contains(t, filter, "LIKE")
	require.Equal(t, "42:cid%", arg)

	_, arg = vectorFilter("")
	require.Equal(t, "%", arg)
}

func TestOwnerOf(t *testing.T) {
	require.Equal(t, "42:", ownerOf("42:cidade"))
	require.Equal(t, "a:b:", ownerOf("a:b:c"))
	require.Equal(t, "", ownerOf("cidade"))
}

func TestMigrationKeepsVectorSearchExact(t *testing.T) {
	stmts := strings.Join(migrationStatements(768), "\n")

	require.Contains(t, stmts, "vector(768)")
	require.Contains(t, stmts, "idx_fact_vectors_owner ON fact_vectors (owner)")
	require.Contains(t, stmts, "DROP INDEX IF EXISTS idx_fact_vectors_embedding")
	require.NotContains(t, stmts, "USING hnsw")
	require.NotContains(t, stmts, "ivfflat")
	require.Contains(t, stmts, "(path text_pattern_ops)")
}

func TestDocumentPathUsesByteOrderCollation(t *testing.T) {
	sch, err := schema.Parse(&documentModel{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	field := sch.LookUpField("path")
	require.NotNil(t, field)
	require.True(t, field.PrimaryKey)
	require.Equal(t, `text COLLATE "C"`, field.TagSettings["TYPE"])
}
