package lifecycle

import (
	"sort"
	"strings"
	"time"

	"lab_borrow_portal/models"
)

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
)

type DayGroup struct {
	Label    string                 `json:"label"`
	Anchor   time.Time              `json:"anchor"`
	Requests []models.BorrowRequest `json:"requests"`
}

// DayLabel 相对 now 返回 Today、Yesterday 或 "DD/MM, DOW"
func DayLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t, now = t.In(loc), now.In(loc)
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return LabelToday
	}
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	if ty == yy && tm == ym && td == yd {
		return LabelYesterday
	}
	return t.Format("02/01") + ", " + strings.ToUpper(t.Format("Mon"))
}

// GroupByCreationDay 按创建日期分组
// 组内和组间都是新的在前，没有创建时间的申请跳过
func GroupByCreationDay(reqs []models.BorrowRequest, now time.Time, loc *time.Location) []DayGroup {
	index := map[string]int{}
	var groups []DayGroup
	for _, r := range reqs {
		if r.CreatedAt.IsZero() {
			continue
		}
		label := DayLabel(r.CreatedAt, now, loc)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, DayGroup{Label: label})
		}
		groups[i].Requests = append(groups[i].Requests, r)
	}

	for i := range groups {
		g := &groups[i]
		sort.SliceStable(g.Requests, func(a, b int) bool {
			return g.Requests[a].CreatedAt.After(g.Requests[b].CreatedAt)
		})
		switch g.Label {
		case LabelToday:
			g.Anchor = now
		case LabelYesterday:
			g.Anchor = now.Add(-24 * time.Hour)
		default:
			g.Anchor = g.Requests[0].CreatedAt
		}
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Anchor.After(groups[b].Anchor)
	})
	return groups
}
