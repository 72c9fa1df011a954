package scoring

import "time"

// DateLayout is how the last daily play day is stored.
const DateLayout = "2006-01-02"

// Streak counts consecutive perfect sessions.
type Streak struct {
	Current int
	Best    int
}

// Record adds one session. A perfect session extends the streak and anything
// else resets it to zero.
func (s Streak) Record(perfect bool) Streak {
	if !perfect {
		s.Current = 0
		return s
	}
	s.Current++
	if s.Current > s.Best {
		s.Best = s.Current
	}
	return s
}

// DailyStreak counts consecutive calendar days with a finished session.
type DailyStreak struct {
	Current   int
	Best      int
	LastDay   string
	ExpiresAt *time.Time
}

// Record registers a session finished at now. Days are taken in loc.
func (d DailyStreak) Record(now time.Time, loc *time.Location) DailyStreak {
	today := civilDay(now, loc)
	gap := -1
	if last, err := time.Parse(DateLayout, d.LastDay); err == nil && d.LastDay != "" {
		gap = int(today.Sub(last).Hours() / 24)
	}

	switch {
	case gap == 0 && d.Current > 0:
	case gap == 1:
		d.Current++
	default:
		d.Current = 1
	}
	if d.Current > d.Best {
		d.Best = d.Current
	}
	d.LastDay = today.Format(DateLayout)
	expires := StreakExpiry(now, loc)
	d.ExpiresAt = &expires
	return d
}

// Check zeroes a streak whose last play day is older than yesterday.
func (d DailyStreak) Check(now time.Time, loc *time.Location) DailyStreak {
	if d.LastDay == "" {
		return d
	}
	last, err := time.Parse(DateLayout, d.LastDay)
	if err != nil {
		return d
	}
	if int(civilDay(now, loc).Sub(last).Hours()/24) > 1 {
		d.Current = 0
		d.ExpiresAt = nil
	}
	return d
}

// StreakExpiry is the last instant of the day after playedAt, in loc.
func StreakExpiry(playedAt time.Time, loc *time.Location) time.Time {
	local := playedAt.In(location(loc))
	y, m, day := local.Date()
	return time.Date(y, m, day+2, 0, 0, 0, 0, local.Location()).Add(-time.Millisecond)
}

// civilDay maps t to midnight UTC of its calendar date in loc, so day
// arithmetic ignores DST shifts.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(location(loc)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
