package a

import "time"

func createdAt() time.Time {
	return time.Now() // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}

func approvedAt() time.Time {
	return time.Now().UTC()
}

func takenAt() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func today() time.Time {
	t := time.Now() // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
	return t.In(time.Local) // want "time.Local depends on the host; use the configured location"
}

func todayIn(loc *time.Location) time.Time {
	return time.Now().UTC().In(loc)
}

func hostZone() *time.Location {
	//nolint
	return time.Local
}

func suppressed() time.Time {
	return time.Now() //nolint:timeutc
}

func suppressedInList() time.Time {
	return time.Now() //nolint:gocritic,timeutc
}

func otherLinter() time.Time {
	return time.Now() //nolint:otherlinter // want "time.Now\\(\\) should be followed by .UTC\\(\\) for timezone consistency"
}
