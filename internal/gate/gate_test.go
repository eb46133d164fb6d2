package gate

import "testing"

func TestCanWrite(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		banned bool
		kind   Kind
		want   bool
	}{
		{"standard unbanned bug_report", RoleStandard, false, KindBugReport, true},
		{"standard unbanned appeal", RoleStandard, false, KindAppeal, false},
		{"standard banned bug_report", RoleStandard, true, KindBugReport, false},
		{"standard banned appeal", RoleStandard, true, KindAppeal, true},
		{"staff unbanned bug_report", RoleStaff, false, KindBugReport, true},
		{"staff unbanned appeal", RoleStaff, false, KindAppeal, true},
		{"staff banned bug_report", RoleStaff, true, KindBugReport, true},
		{"staff banned appeal", RoleStaff, true, KindAppeal, true},
		{"unknown kind denied", RoleStandard, false, Kind("group"), false},
		{"unknown kind denied when banned", RoleStandard, true, Kind(""), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanWrite(tc.role, tc.banned, tc.kind); got != tc.want {
				t.Errorf("CanWrite(%s, %v, %s) = %v, want %v",
					tc.role, tc.banned, tc.kind, got, tc.want)
			}
		})
	}
}

func TestKindValid(t *testing.T) {
	if !KindBugReport.Valid() || !KindAppeal.Valid() {
		t.Error("expected built-in kinds to be valid")
	}
	if Kind("dm").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}
