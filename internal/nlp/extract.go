package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tags prefixed to the event name when an explicit value could not be
// turned into a timestamp and the start fell back to now.
const (
	TagBadDate = "[LỖI NGÀY/THÁNG] "
	TagBadTime = "[LỖI GIỜ] "
)

const DefaultPlaceholder = "Sự kiện không tên"

// Slots is what the extractor pulled out of one utterance.
type Slots struct {
	Name    string
	Start   time.Time
	HasDate bool
	HasTime bool
	// HasDay is set when a relative-day phrase matched, including the
	// zero-offset ones such as "hôm nay".
	HasDay          bool
	DayOffset       int
	Location        string
	ReminderMinutes *int
	Malformed       bool
}

type relativeDay struct {
	offset  int
	label   string
	phrases []string
	re      *regexp.Regexp
}

// Extractor pulls a timestamp, a lead time, a location and a cleaned event
// name out of free text. It holds no mutable state.
type Extractor struct {
	placeholder  string
	relativeDays []relativeDay
	leadIns      [][]string
	trailers     [][]string
}

const (
	wordBefore = `(?:^|[^\p{L}\p{N}])`
	wordAfter  = `(?:[^\p{L}\p{N}]|$)`
	timePrefix = `(?:(?:vào\s+)?lúc\s+|vào\s+)?`
	dayPeriod  = `(?:\s+(sáng|trưa|chiều|tối|đêm))?`
)

var (
	dateRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}/])((?:ngày\s+)?(\d{1,2})/(\d{1,2})(?:/(\d{4}))?)(?:[^\p{L}\p{N}/]|$)`)

	clockRe = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}:])(` + timePrefix + `(\d{1,2}):(\d{2})` + dayPeriod + `)(?:[^\p{L}\p{N}:/]|$)`)

	hourRe = regexp.MustCompile(`(?i)` + wordBefore + `(` + timePrefix + `(\d{1,2})\s*(?:giờ|h)(?:\s*(\d{1,2})(?:\s*phút)?)?` + dayPeriod + `)(?:[^\p{L}\p{N}/:]|$)`)

	leadRe = regexp.MustCompile(`(?i)` + wordBefore + `((?:nhắc\s+)?trước\s+(\d{1,4})\s*(phút|giờ|tiếng))` + wordAfter)

	locationRe = regexp.MustCompile(`(?i)` + wordBefore + `(tại\s+(.+))$`)
)

func NewExtractor(placeholder string) *Extractor {
	if strings.TrimSpace(placeholder) == "" {
		placeholder = DefaultPlaceholder
	}
	x := &Extractor{placeholder: placeholder}

	// Descending distance; the first group with a match wins.
	days := []relativeDay{
		{offset: 7, label: "Tuần sau", phrases: []string{"tuần sau", "tuần tới"}},
		{offset: 3, label: "Ngày kìa", phrases: []string{"ngày kìa", "hôm kìa"}},
		{offset: 2, label: "Ngày kia", phrases: []string{"ngày kia", "hôm kia", "ngày mốt"}},
		{offset: 1, label: "Ngày mai", phrases: []string{"sáng mai", "trưa mai", "chiều mai", "tối mai", "ngày mai", "mai"}},
		{offset: 0, label: "Hôm nay", phrases: []string{"hôm nay", "tối nay", "chiều nay", "sáng nay", "nay"}},
	}
	for i := range days {
		quoted := make([]string, len(days[i].phrases))
		for j, p := range days[i].phrases {
			quoted[j] = regexp.QuoteMeta(p)
		}
		// Single literal spaces: a phrase must not bridge a blanked span.
		days[i].re = regexp.MustCompile(`(?i)` + wordBefore + `((?:vào )?(?:` + strings.Join(quoted, "|") + `))` + wordAfter)
	}
	x.relativeDays = days

	for _, p := range []string{
		"tôi muốn", "hãy", "làm ơn", "nhắc nhở tôi", "nhắc tôi", "nhắc",
		"có lịch hẹn", "lịch hẹn", "có lịch", "thêm sự kiện", "thêm lịch", "thêm",
		"tạo sự kiện", "tạo lịch", "tạo", "đặt lịch", "ghi chú",
		"xóa sự kiện", "xoá sự kiện", "xóa", "xoá", "hủy", "huỷ", "bỏ",
		"cập nhật", "sửa", "đổi", "dời", "sự kiện", "lịch", "đi", "lúc", "vào",
	} {
		x.leadIns = append(x.leadIns, strings.Fields(p))
	}
	for _, p := range []string{"vào lúc", "lúc", "vào", "sang", "ngày", "nhé", "nha"} {
		x.trailers = append(x.trailers, strings.Fields(p))
	}
	return x
}

// Extract reads the slots out of text relative to now. now's location is
// the location of the returned Start.
//
// Every matched span is blanked in a working copy, so the name keeps the
// words on both sides of a date phrase found mid-sentence.
func (x *Extractor) Extract(text string, now time.Time) Slots {
	work := []byte(Normalize(text))
	var s Slots
	var tag string

	if m := leadRe.FindSubmatchIndex(work); m != nil {
		n, _ := strconv.Atoi(string(work[m[4]:m[5]]))
		if unit := strings.ToLower(string(work[m[6]:m[7]])); unit != "phút" {
			n *= 60
		}
		s.ReminderMinutes = &n
		blank(work, m[2], m[3])
	}

	year, month, day := now.Date()
	if m := dateRe.FindSubmatchIndex(work); m != nil {
		s.HasDate = true
		d, _ := strconv.Atoi(string(work[m[4]:m[5]]))
		mo, _ := strconv.Atoi(string(work[m[6]:m[7]]))
		y := year
		if m[8] >= 0 {
			y, _ = strconv.Atoi(string(work[m[8]:m[9]]))
		}
		if validDate(y, mo, d) {
			year, month, day = y, time.Month(mo), d
		} else {
			tag = TagBadDate
		}
		blank(work, m[2], m[3])
	}

	hour, minute := 0, 0
	m := clockRe.FindSubmatchIndex(work)
	if m == nil {
		m = hourRe.FindSubmatchIndex(work)
	}
	if m != nil {
		s.HasTime = true
		hour, _ = strconv.Atoi(string(work[m[4]:m[5]]))
		if m[6] >= 0 {
			minute, _ = strconv.Atoi(string(work[m[6]:m[7]]))
		}
		if m[8] >= 0 {
			hour = shiftForPeriod(hour, strings.ToLower(string(work[m[8]:m[9]])))
		}
		if hour > 23 || minute > 59 {
			if tag == "" {
				tag = TagBadTime
			}
		}
		blank(work, m[2], m[3])
	}

	for _, rd := range x.relativeDays {
		if m := rd.re.FindSubmatchIndex(work); m != nil {
			s.HasDay = true
			if !s.HasDate {
				s.DayOffset = rd.offset
			}
			blank(work, m[2], m[3])
			break
		}
	}

	if m := locationRe.FindSubmatchIndex(work); m != nil {
		s.Location = Normalize(string(work[m[4]:m[5]]))
		blank(work, m[2], m[3])
	}

	if tag != "" {
		s.Malformed = true
		s.Start = now.Truncate(time.Minute)
	} else {
		s.Start = time.Date(year, month, day, hour, minute, 0, 0, now.Location()).AddDate(0, 0, s.DayOffset)
	}

	s.Name = x.cleanName(string(work))
	if s.Name == "" {
		s.Name = x.placeholder
	}
	s.Name = tag + s.Name
	return s
}

// DayLabel names the day that Extract resolved, for messages. Without any
// day phrase the day is today.
func (x *Extractor) DayLabel(s Slots) string {
	if !s.HasDate {
		for _, rd := range x.relativeDays {
			if rd.offset == s.DayOffset && rd.offset != 7 {
				return rd.label
			}
		}
	}
	return "Ngày " + s.Start.Format("02/01/2006")
}

func (x *Extractor) cleanName(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = strings.Trim(w, ",.;!?")
	}
	words = dropEmpty(words)

	for changed := true; changed && len(words) > 0; {
		changed = false
		for _, lead := range x.leadIns {
			if hasWordPrefix(words, lead) {
				words = words[len(lead):]
				changed = true
				break
			}
		}
	}
	for changed := true; changed && len(words) > 0; {
		changed = false
		for _, trail := range x.trailers {
			if hasWordSuffix(words, trail) {
				words = words[:len(words)-len(trail)]
				changed = true
				break
			}
		}
	}
	return strings.Join(words, " ")
}

func shiftForPeriod(hour int, period string) int {
	switch period {
	case "chiều", "tối":
		if hour < 12 {
			return hour + 12
		}
	case "trưa":
		if hour < 11 {
			return hour + 12
		}
	case "đêm":
		if hour >= 6 && hour < 12 {
			return hour + 12
		}
	}
	return hour
}

// validDate rejects values time.Date would silently normalize, such as
// 31/4.
func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && int(t.Month()) == m
}

func blank(b []byte, from, to int) {
	for i := from; i < to; i++ {
		b[i] = ' '
	}
}

func dropEmpty(words []string) []string {
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
