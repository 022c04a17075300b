package insights

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

func studied(student string, contentIDs ...string) []models.StudyRecord {
	records := make([]models.StudyRecord, len(contentIDs))
	for i, id := range contentIDs {
		records[i] = models.StudyRecord{StudentID: student, ContentID: id}
	}
	return records
}

func TestFindSimilarJaccard(t *testing.T) {
	records := append(studied("s1", "c1", "c2", "c3"), studied("s2", "c1", "c2", "c4")...)

	matches := FindSimilar("s1", records, 2)

	require.Len(t, matches, 1)
	assert.Equal(t, "s2", matches[0].StudentID)
	assert.InDelta(t, 0.5, matches[0].Similarity, 1e-12)
	assert.Equal(t, 2, matches[0].CommonItems)
}

func TestFindSimilarMinCommonItems(t *testing.T) {
	records := append(studied("s1", "c1", "c2", "c3"), studied("s2", "c1", "c9")...)

	assert.Empty(t, FindSimilar("s1", records, 2))
	assert.Len(t, FindSimilar("s1", records, 1), 1)
}

func TestFindSimilarUnknownStudent(t *testing.T) {
	records := studied("s1", "c1")

	matches := FindSimilar("ghost", records, 1)

	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFindSimilarOrderingAndCap(t *testing.T) {
	records := studied("target", "c1", "c2", "c3", "c4")
	// p-low shares 2 of 6, the tied peers share 2 of 4
	records = append(records, studied("p-low", "c1", "c2", "x1", "x2")...)
	for i := 0; i < 12; i++ {
		records = append(records, studied(fmt.Sprintf("p%02d", i), "c1", "c2")...)
	}
	records = append(records, studied("p-best", "c1", "c2", "c3", "c4")...)

	matches := FindSimilar("target", records, 2)

	require.Len(t, matches, MaxSimilarPeers)
	assert.Equal(t, "p-best", matches[0].StudentID)
	assert.Equal(t, 1.0, matches[0].Similarity)
	for i := 1; i < MaxSimilarPeers; i++ {
		assert.Equal(t, fmt.Sprintf("p%02d", i-1), matches[i].StudentID)
		assert.InDelta(t, 0.5, matches[i].Similarity, 1e-12)
	}
}

func TestFindSimilarDuplicateRecordsCountOnce(t *testing.T) {
	records := append(studied("s1", "c1", "c1", "c2"), studied("s2", "c1", "c2", "c2")...)

	matches := FindSimilar("s1", records, 2)

	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Similarity)
}

func TestRecommendFromPeers(t *testing.T) {
	records := append(studied("s1", "c1", "c2", "c3"), studied("s2", "c1", "c2", "c4")...)
	catalog := []models.ContentItem{
		{ID: "c1", Title: "Algebra"},
		{ID: "c2", Title: "Geometry"},
		{ID: "c3", Title: "Calculus"},
		{ID: "c4", Title: "Statistics"},
	}

	recs := RecommendFromPeers("s1", PeerIDs(FindSimilar("s1", records, 2)), records, catalog, 10)

	require.Len(t, recs, 1)
	assert.Equal(t, "c4", recs[0].Content.ID)
	assert.Equal(t, 1, recs[0].PeerCount)
	assert.Equal(t, reasonPeerStudied, recs[0].Reason)
}

func TestRecommendFromPeersFrequencyAndLimit(t *testing.T) {
	records := studied("me", "c1")
	records = append(records, studied("p1", "c2", "c3", "c3")...)
	records = append(records, studied("p2", "c3", "c4")...)
	records = append(records, studied("p3", "c4", "c3", "c5")...)
	records = append(records, studied("outsider", "c9", "c9", "c9")...)
	catalog := []models.ContentItem{{ID: "c2"}, {ID: "c3"}, {ID: "c4"}, {ID: "c5"}, {ID: "c9"}}

	recs := RecommendFromPeers("me", []string{"p1", "p2", "p3"}, records, catalog, 2)

	require.Len(t, recs, 2)
	assert.Equal(t, "c3", recs[0].Content.ID)
	assert.Equal(t, 3, recs[0].PeerCount)
	assert.Equal(t, "c4", recs[1].Content.ID)
	assert.Equal(t, 2, recs[1].PeerCount)
}

func TestRecommendFromPeersSkipsUnknownCatalogItems(t *testing.T) {
	records := append(studied("me", "c1"), studied("p1", "gone", "c2")...)
	catalog := []models.ContentItem{{ID: "c2"}}

	recs := RecommendFromPeers("me", []string{"p1"}, records, catalog, 10)

	require.Len(t, recs, 1)
	assert.Equal(t, "c2", recs[0].Content.ID)
}

func TestRecommendFromPeersNoPeers(t *testing.T) {
	records := studied("me", "c1")

	recs := RecommendFromPeers("me", nil, records, []models.ContentItem{{ID: "c1"}}, 10)

	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestCollaborativeIsIdempotent(t *testing.T) {
	records := append(studied("s1", "c1", "c2", "c3"), studied("s2", "c1", "c2", "c4")...)
	records = append(records, studied("s3", "c2", "c3", "c5")...)
	catalog := []models.ContentItem{{ID: "c4"}, {ID: "c5"}}

	assert.Equal(t, FindSimilar("s1", records, 2), FindSimilar("s1", records, 2))
	peers := PeerIDs(FindSimilar("s1", records, 2))
	assert.Equal(t, RecommendFromPeers("s1", peers, records, catalog, 5), RecommendFromPeers("s1", peers, records, catalog, 5))
}
