package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/couplesync/internal/remote"
)

func TestDocumentItemRoundTrip(t *testing.T) {
	doc := remote.Document{
		"coupleId":  "c1",
		"title":     "anniversary",
		"completed": true,
		"photoRefs": []any{"k1", "k2"},
		"comments": []any{
			map[string]any{"id": "cm1", "text": "hi"},
		},
	}

	item, err := documentToItem(doc, "events", "e1")
	require.NoError(t, err)

	// key attributes carried alongside the document fields
	require.Equal(t, &types.AttributeValueMemberS{Value: "events"}, item[attrCollection])
	require.Equal(t, &types.AttributeValueMemberS{Value: "e1"}, item[attrID])

	out, err := itemToDocument(item)
	require.NoError(t, err)

	// key attributes stripped, id field injected
	require.NotContains(t, out, attrCollection)
	require.NotContains(t, out, attrID)
	require.Equal(t, "e1", out["id"])
	require.Equal(t, "c1", out["coupleId"])
	require.Equal(t, "anniversary", out["title"])
	require.Equal(t, true, out["completed"])
	require.Equal(t, []any{"k1", "k2"}, out["photoRefs"])
}

func TestDocumentToItem_DoesNotMutateInput(t *testing.T) {
	doc := remote.Document{"title": "x"}

	_, err := documentToItem(doc, "events", "e1")
	require.NoError(t, err)
	require.NotContains(t, doc, "id")
}
