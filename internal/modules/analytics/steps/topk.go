package steps

import (
	"sort"

	"github.com/yungbote/tenantsearch-backend/internal/domain"
)

// TopK ranks texts by count, keeping first-occurrence order among equal
// counts. Rows carry no scope; the caller stamps it.
func TopK(stats StatsTable, k int) []*domain.TopQueryRow {
	if k <= 0 || stats.Len() == 0 {
		return []*domain.TopQueryRow{}
	}
	texts := append([]string(nil), stats.Texts...)
	sort.SliceStable(texts, func(i, j int) bool {
		return stats.Stats[texts[i]].Count > stats.Stats[texts[j]].Count
	})
	if len(texts) > k {
		texts = texts[:k]
	}
	out := make([]*domain.TopQueryRow, 0, len(texts))
	for i, text := range texts {
		st := stats.Stats[text]
		out = append(out, &domain.TopQueryRow{
			Rank:                 i + 1,
			QueryText:            text,
			Count:                st.Count,
			PositiveFeedbackRate: st.PositiveFeedbackRate,
			AvgLatencyMs:         st.AvgLatencyMs,
		})
	}
	return out
}
