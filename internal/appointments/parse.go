package appointments

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/neumaticos-whatsapp/internal/textnorm"
)

var provinceAliases = map[string]string{
	"sgo":     "santiago",
	"stgo":    "santiago",
	"tuc":     "tucuman",
	"tucuman": "tucuman",
	"cat":     "catamarca",
	"salta":   "salta",
}

// ParseProvince resolves a province from a menu number, a full or partial name, or a
// common abbreviation.
func ParseProvince(input string) (Province, bool) {
	normalized := textnorm.Fold(input)
	if normalized == "" {
		return Province{}, false
	}
	if n, ok := textnorm.LeadingInt(normalized); ok {
		if n >= 1 && n <= len(Provinces) {
			return Provinces[n-1], true
		}
	}
	for _, p := range Provinces {
		name := textnorm.Fold(p.Name)
		if name == normalized || strings.Contains(name, normalized) || strings.Contains(normalized, name) {
			return p, true
		}
	}
	if id, ok := provinceAliases[normalized]; ok {
		return ProvinceByID(id)
	}
	return Province{}, false
}

// Branch is a workshop location that takes appointments.
type Branch struct {
	ID       string
	Name     string
	Address  string
	City     string
	Province string
	Phone    string
}

// InProvince reports whether the branch's province label matches provinceID.
func (b Branch) InProvince(provinceID string) bool {
	want := textnorm.Fold(provinceID)
	have := textnorm.Fold(b.Province)
	if want == "" || have == "" {
		return false
	}
	return strings.Contains(have, want) || strings.Contains(want, have)
}

// ParseBranch resolves a branch from a menu number or a partial name.
func ParseBranch(input string, branches []Branch) (Branch, bool) {
	normalized := textnorm.Fold(input)
	if normalized == "" {
		return Branch{}, false
	}
	if n, ok := textnorm.LeadingInt(normalized); ok {
		if n >= 1 && n <= len(branches) {
			return branches[n-1], true
		}
	}
	for _, b := range branches {
		name := textnorm.Fold(b.Name)
		if name == normalized || strings.Contains(name, normalized) {
			return b, true
		}
	}
	return Branch{}, false
}

var completionWords = []string{"listo", "termine", "ok", "continuar", "siguiente", "ready", "done"}

// IsServicesDone reports whether the user finished picking services.
func IsServicesDone(input string) bool {
	return matchesAny(textnorm.Fold(input), completionWords)
}

// ServiceSelection is the result of parsing one answer at the services step.
type ServiceSelection struct {
	Services []string
	Added    []string
	Complete bool
}

// ParseServices adds the services named in input to current. Answers may be a menu
// number, an id, a name or several of them separated by commas or "y".
func ParseServices(input string, current []string) ServiceSelection {
	sel := ServiceSelection{Services: append([]string{}, current...)}
	if IsServicesDone(input) {
		sel.Complete = true
		return sel
	}
	for _, token := range splitServiceTokens(textnorm.Fold(input)) {
		svc, ok := matchService(token)
		if !ok {
			continue
		}
		if contains(sel.Services, svc.ID) {
			continue
		}
		sel.Services = append(sel.Services, svc.ID)
		sel.Added = append(sel.Added, svc.ID)
	}
	return sel
}

func splitServiceTokens(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '+' })
	var out []string
	for _, p := range parts {
		for _, q := range strings.Split(p, " y ") {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
	}
	return out
}

func matchService(token string) (ServiceOption, bool) {
	if n, ok := textnorm.LeadingInt(token); ok {
		if n >= 1 && n <= len(Catalog) {
			return Catalog[n-1], true
		}
		return ServiceOption{}, false
	}
	for _, s := range Catalog {
		name := textnorm.Fold(s.Name)
		if s.ID == token || name == token || (len(token) >= 3 && strings.Contains(name, token)) {
			return s, true
		}
	}
	return ServiceOption{}, false
}

var (
	dayMonthPattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern     = regexp.MustCompile(`(\d{1,2}):?(\d{2})?`)
)

var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"domingo", time.Sunday},
	{"lunes", time.Monday},
	{"martes", time.Tuesday},
	{"miercoles", time.Wednesday},
	{"jueves", time.Thursday},
	{"viernes", time.Friday},
	{"sabado", time.Saturday},
}

// ParseDate picks one of the offered dates by menu number, DD/MM, or weekday name.
func ParseDate(input string, dates []AvailableDate) (AvailableDate, bool) {
	normalized := textnorm.Fold(input)
	if normalized == "" {
		return AvailableDate{}, false
	}
	if !strings.Contains(normalized, "/") {
		if n, ok := textnorm.LeadingInt(normalized); ok && n >= 1 && n <= len(dates) {
			return dates[n-1], true
		}
	}
	if m := dayMonthPattern.FindStringSubmatch(normalized); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		want := fmt.Sprintf("%02d/%02d", day, month)
		for _, d := range dates {
			if strings.HasSuffix(d.DayName, want) {
				return d, true
			}
		}
	}
	for _, wd := range weekdayNames {
		if wd.day == time.Sunday || !strings.Contains(normalized, wd.name) {
			continue
		}
		for _, d := range dates {
			if d.DayOfWeek == wd.day {
				return d, true
			}
		}
	}
	return AvailableDate{}, false
}

// ParseTime picks a slot by menu number or by HH[:MM], rounding down to the half hour
// when the exact time is not offered.
func ParseTime(input string, slots []string) (string, bool) {
	normalized := textnorm.Fold(input)
	if normalized == "" {
		return "", false
	}
	if !strings.Contains(normalized, ":") {
		if n, ok := textnorm.LeadingInt(normalized); ok && n >= 1 && n <= len(slots) {
			return slots[n-1], true
		}
	}
	m := timePattern.FindStringSubmatch(normalized)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	exact := fmt.Sprintf("%02d:%02d", hour, minute)
	if contains(slots, exact) {
		return exact, true
	}
	half := 0
	if minute >= 30 {
		half = 30
	}
	rounded := fmt.Sprintf("%02d:%02d", hour, half)
	if contains(slots, rounded) {
		return rounded, true
	}
	return "", false
}

// ParseNaturalDate turns "hoy", "mañana", "pasado mañana", a weekday name,
// YYYY-MM-DD or DD/MM into a YYYY-MM-DD date relative to now. A DD/MM already
// past this year rolls over to the next one.
func ParseNaturalDate(input string, now time.Time) (string, bool) {
	normalized := textnorm.Fold(input)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch normalized {
	case "":
		return "", false
	case "hoy":
		return today.Format(dateLayout), true
	case "manana":
		return today.AddDate(0, 0, 1).Format(dateLayout), true
	case "pasado manana":
		return today.AddDate(0, 0, 2).Format(dateLayout), true
	}
	for _, wd := range weekdayNames {
		if strings.Contains(normalized, wd.name) {
			return NextWeekday(today, wd.day).Format(dateLayout), true
		}
	}
	if isoDatePattern.MatchString(normalized) {
		return normalized, true
	}
	if m := dayMonthPattern.FindStringSubmatch(normalized); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return "", false
		}
		d := time.Date(today.Year(), time.Month(month), day, 0, 0, 0, 0, today.Location())
		if d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
		return d.Format(dateLayout), true
	}
	return "", false
}

// NextWeekday returns the next date strictly after from that falls on day.
func NextWeekday(from time.Time, day time.Weekday) time.Time {
	add := int(day) - int(from.Weekday())
	if add <= 0 {
		add += 7
	}
	return from.AddDate(0, 0, add)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func matchesAny(normalized string, words []string) bool {
	for _, w := range words {
		if normalized == w {
			return true
		}
	}
	return false
}
