// Package catalog holds the fixed violation-type table: point values grouped
// into tiers, with the attendance subset marked so absence and lateness
// records mutually exclude each other per subject per day.
package catalog

// Tier groups violation types sharing one penalty value.
type Tier struct {
	Name       string   `json:"name"`
	Points     int      `json:"points"`
	Types      []string `json:"types"`
	Attendance bool     `json:"attendance"`
}

// Catalog resolves violation types to penalty points. Points are never
// persisted on records; callers recompute them at read time, so edits to the
// catalog retroactively reprice historical violations.
type Catalog interface {
	// PointsFor returns the penalty value for a type, 0 when unknown.
	PointsFor(typeName string) int
	// IsAttendanceType reports whether the type belongs to the attendance
	// dedup bucket.
	IsAttendanceType(typeName string) bool
	// AttendanceTypes lists every attendance-type name.
	AttendanceTypes() []string
	// Known reports whether the type exists in the catalog at all.
	Known(typeName string) bool
	// Tiers returns the ordered tier table.
	Tiers() []Tier
}

// AbsenceExcusedType is the type recorded for approved absence requests.
const AbsenceExcusedType = "Nghỉ học có phép"

var defaultTiers = []Tier{
	{
		Name:   "Nhẹ",
		Points: 2,
		Types:  []string{"Không đồng phục", "Đi dép lê", "Không phù hiệu"},
	},
	{
		Name:       "Chuyên cần",
		Points:     3,
		Types:      []string{AbsenceExcusedType, "Đi học muộn có phép"},
		Attendance: true,
	},
	{
		Name:   "Trung bình",
		Points: 5,
		Types:  []string{"Mất trật tự", "Không làm bài tập", "Xả rác"},
	},
	{
		Name:       "Chuyên cần nặng",
		Points:     5,
		Types:      []string{"Nghỉ học không phép", "Đi học muộn không phép"},
		Attendance: true,
	},
	{
		Name:   "Nặng",
		Points: 10,
		Types:  []string{"Vô lễ với giáo viên", "Đánh nhau", "Hút thuốc", "Gian lận kiểm tra"},
	},
}

type table struct {
	tiers      []Tier
	points     map[string]int
	attendance map[string]struct{}
}

// Default returns the built-in tier table.
func Default() Catalog {
	return New(defaultTiers)
}

// New builds a Catalog from an ordered tier list. Tests inject alternate
// tables to exercise repricing.
func New(tiers []Tier) Catalog {
	t := &table{
		tiers:      tiers,
		points:     make(map[string]int),
		attendance: make(map[string]struct{}),
	}
	for _, tier := range tiers {
		for _, name := range tier.Types {
			t.points[name] = tier.Points
			if tier.Attendance {
				t.attendance[name] = struct{}{}
			}
		}
	}
	return t
}

func (t *table) PointsFor(typeName string) int {
	return t.points[typeName]
}

func (t *table) IsAttendanceType(typeName string) bool {
	_, ok := t.attendance[typeName]
	return ok
}

func (t *table) AttendanceTypes() []string {
	out := make([]string, 0, len(t.attendance))
	for _, tier := range t.tiers {
		if !tier.Attendance {
			continue
		}
		out = append(out, tier.Types...)
	}
	return out
}

func (t *table) Known(typeName string) bool {
	_, ok := t.points[typeName]
	return ok
}

func (t *table) Tiers() []Tier {
	return t.tiers
}
