package insights

import (
	"sort"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

// MaxSimilarPeers caps the number of peers returned by FindSimilar.
const MaxSimilarPeers = 10

// FindSimilar returns students whose studied content overlaps the target's by at least
// minCommonItems items, ordered by Jaccard similarity. Ties keep the order in which the
// students first appear in records. An unknown target yields an empty result.
func FindSimilar(studentID string, records []models.StudyRecord, minCommonItems int) []models.PeerMatch {
	order, sets := groupByStudent(records)
	target, ok := sets[studentID]
	if !ok {
		return []models.PeerMatch{}
	}

	matches := make([]models.PeerMatch, 0)
	for _, peer := range order {
		if peer == studentID {
			continue
		}
		peerSet := sets[peer]
		common := 0
		for id := range peerSet {
			if _, shared := target[id]; shared {
				common++
			}
		}
		if common < minCommonItems {
			continue
		}
		union := len(target) + len(peerSet) - common
		if union == 0 {
			continue
		}
		matches = append(matches, models.PeerMatch{
			StudentID:   peer,
			Similarity:  float64(common) / float64(union),
			CommonItems: common,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > MaxSimilarPeers {
		matches = matches[:MaxSimilarPeers]
	}
	return matches
}

// RecommendFromPeers surfaces the content most often studied by peerIDs that the target
// has not studied. Each peer counts once per item. Ids missing from the catalog are
// skipped, so fewer than limit items may be returned.
func RecommendFromPeers(studentID string, peerIDs []string, records []models.StudyRecord, catalog []models.ContentItem, limit int) []models.PeerRecommendation {
	studied := make(map[string]struct{})
	for _, r := range records {
		if r.StudentID == studentID && r.ContentID != "" {
			studied[r.ContentID] = struct{}{}
		}
	}
	peers := toSet(peerIDs)

	type tally struct {
		id    string
		count int
	}
	var tallies []*tally
	byID := make(map[string]*tally)
	voted := make(map[[2]string]struct{})
	for _, r := range records {
		if r.ContentID == "" {
			continue
		}
		if _, ok := peers[r.StudentID]; !ok {
			continue
		}
		if _, ok := studied[r.ContentID]; ok {
			continue
		}
		key := [2]string{r.StudentID, r.ContentID}
		if _, dup := voted[key]; dup {
			continue
		}
		voted[key] = struct{}{}

		t, ok := byID[r.ContentID]
		if !ok {
			t = &tally{id: r.ContentID}
			byID[r.ContentID] = t
			tallies = append(tallies, t)
		}
		t.count++
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].count > tallies[j].count
	})
	if limit > 0 && len(tallies) > limit {
		tallies = tallies[:limit]
	}

	items := make(map[string]models.ContentItem, len(catalog))
	for _, item := range catalog {
		if _, ok := items[item.ID]; !ok {
			items[item.ID] = item
		}
	}

	out := make([]models.PeerRecommendation, 0, len(tallies))
	for _, t := range tallies {
		item, ok := items[t.id]
		if !ok {
			continue
		}
		out = append(out, models.PeerRecommendation{
			Content:   item,
			PeerCount: t.count,
			Reason:    reasonPeerStudied,
		})
	}
	return out
}

// PeerIDs extracts student ids from matches, preserving order.
func PeerIDs(matches []models.PeerMatch) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.StudentID
	}
	return ids
}

func groupByStudent(records []models.StudyRecord) ([]string, map[string]map[string]struct{}) {
	var order []string
	sets := make(map[string]map[string]struct{})
	for _, r := range records {
		if r.StudentID == "" || r.ContentID == "" {
			continue
		}
		set, ok := sets[r.StudentID]
		if !ok {
			set = make(map[string]struct{})
			sets[r.StudentID] = set
			order = append(order, r.StudentID)
		}
		set[r.ContentID] = struct{}{}
	}
	return order, sets
}
