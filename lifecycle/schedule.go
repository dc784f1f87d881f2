package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"lab_borrow_portal/models"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Clock 是从零点开始的分钟数
type Clock int

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c/60, c%60) }

// Display 把 15:00 显示成 "3:00 PM"
func (c Clock) Display() string {
	return time.Date(2000, 1, 1, int(c/60), int(c%60), 0, 0, time.UTC).Format("3:04 PM")
}

// Period 是左闭右开区间 [Start, End)
type Period struct {
	Start Clock
	End   Clock
}

func (p Period) overlaps(start, end Clock) bool { return start < p.End && end > p.Start }

func (p Period) String() string { return p.Start.String() + "-" + p.End.String() }

// ParsePeriods 解析 "09:00-10:00,13:00-15:00"
func ParsePeriods(s string) ([]Period, error) {
	var out []Period
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		a, b, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("period %q: want HH:MM-HH:MM", part)
		}
		start, err := ParseClock(a)
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", part, err)
		}
		end, err := ParseClock(b)
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", part, err)
		}
		if end <= start {
			return nil, fmt.Errorf("period %q: end must be after start", part)
		}
		out = append(out, Period{Start: start, End: end})
	}
	return out, nil
}

// LabHours 实验室可预约的时间段，以及其中不能预约的固定时段
type LabHours struct {
	Open        Clock
	Close       Clock
	Unavailable []Period
}

func DefaultLabHours() LabHours {
	return LabHours{
		Open:  7*60 + 30,
		Close: 21 * 60,
		Unavailable: []Period{
			{Start: 9 * 60, End: 10 * 60},
			{Start: 13 * 60, End: 15 * 60},
			{Start: 16*60 + 30, End: 17*60 + 30},
		},
	}
}

// TimeRange 生成保存在申请上的显示时间段
func TimeRange(start, end Clock) string {
	return start.Display() + " - " + end.Display()
}

// CreatePayload 学生提交的内容
type CreatePayload struct {
	Items        []models.RequestItem `json:"items"`
	BorrowDate   string               `json:"borrowDate"`
	StartTime    string               `json:"startTime"`
	EndTime      string               `json:"endTime"`
	Reason       string               `json:"reason"`
	GroupMembers []string             `json:"groupMembers"`
	TeacherID    string               `json:"teacherId"`
	TeacherName  string               `json:"teacherName"`
}

// schedule 是校验并规范化后的载荷
type schedule struct {
	items      []models.RequestItem
	date       string
	start, end Clock
	reason     string
	members    []string

	teacherID   string
	teacherName string
}

func validatePayload(p CreatePayload, hours LabHours, now time.Time, loc *time.Location) (schedule, error) {
	ve := &ValidationError{}
	out := schedule{}

	if len(p.Items) == 0 {
		ve.add("at least one item is required")
	}
	for i, it := range p.Items {
		it.ItemID = strings.TrimSpace(it.ItemID)
		it.Name = strings.TrimSpace(it.Name)
		if it.ItemID == "" || it.Name == "" {
			ve.add(fmt.Sprintf("item %d: id and name are required", i+1))
		}
		switch {
		case it.Quantity < 0:
			ve.add(fmt.Sprintf("item %d: quantity must be positive", i+1))
		case it.Quantity == 0:
			it.Quantity = 1
		}
		out.items = append(out.items, it)
	}

	out.reason = strings.TrimSpace(p.Reason)
	if out.reason == "" {
		ve.add("reason is required")
	}
	for _, m := range p.GroupMembers {
		if m = strings.TrimSpace(m); m != "" {
			out.members = append(out.members, m)
		}
	}
	// 空白的老师 id 视为没有指定老师
	if out.teacherID = strings.TrimSpace(p.TeacherID); out.teacherID != "" {
		out.teacherName = strings.TrimSpace(p.TeacherName)
	}

	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(p.BorrowDate), loc)
	if err != nil {
		ve.add(fmt.Sprintf("borrow date %q is not YYYY-MM-DD", p.BorrowDate))
	} else {
		n := now.In(loc)
		today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
		if day.Before(today) {
			ve.add("borrow date is in the past")
		}
		out.date = day.Format(DateLayout)
	}

	start, serr := ParseClock(p.StartTime)
	if serr != nil {
		ve.add("start " + serr.Error())
	}
	end, eerr := ParseClock(p.EndTime)
	if eerr != nil {
		ve.add("end " + eerr.Error())
	}
	if serr == nil && eerr == nil {
		out.start, out.end = start, end
		switch {
		case end <= start:
			ve.add("end time must be after start time")
		case start < hours.Open || end > hours.Close:
			ve.add(fmt.Sprintf("time slot must be within lab hours %s-%s", hours.Open, hours.Close))
		default:
			for _, per := range hours.Unavailable {
				if per.overlaps(start, end) {
					ve.add(fmt.Sprintf("time slot conflicts with unavailable period %s", per))
				}
			}
		}
	}

	return out, ve.orNil()
}

// ScheduledEnd 是实验室时区下的 borrowDate + endTime
func ScheduledEnd(req models.BorrowRequest, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout+" "+ClockLayout, req.BorrowDate+" "+req.EndTime, loc)
}

type Lateness struct {
	IsLate    bool
	DaysLate  int
	HoursLate int
}

// ComputeLateness 比较归还时刻和预定结束时间
// DaysLate 按日历天数算，同一天晚几分钟也算逾期，DaysLate 为 0
func ComputeLateness(req models.BorrowRequest, returnedAt time.Time, loc *time.Location) Lateness {
	if loc == nil {
		loc = time.UTC
	}
	end, err := ScheduledEnd(req, loc)
	if err != nil || !returnedAt.After(end) {
		return Lateness{}
	}
	r := returnedAt.In(loc)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	retDay := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
	return Lateness{
		IsLate:    true,
		DaysLate:  int(retDay.Sub(endDay).Hours() / 24),
		HoursLate: int(returnedAt.Sub(end) / time.Hour),
	}
}
