package models_test

import (
	"testing"

	"github.com/wuwenbin0122/campus-accounts/internal/models"
)

func TestAffiliationHoldsExactlyOneField(t *testing.T) {
	student := models.NewStudent("CS")
	if student.Role() != models.RoleStudent || student.Program() != "CS" || student.Department() != "" {
		t.Fatalf("unexpected student affiliation: %+v", student)
	}

	faculty := models.NewFaculty("Physics")
	if faculty.Role() != models.RoleFaculty || faculty.Department() != "Physics" || faculty.Program() != "" {
		t.Fatalf("unexpected faculty affiliation: %+v", faculty)
	}
}

func TestAffiliationFromFields(t *testing.T) {
	cases := []struct {
		name       string
		role       models.Role
		program    string
		department string
		wantRole   models.Role
		wantOK     bool
	}{
		{"student", models.RoleStudent, "CS", "", models.RoleStudent, true},
		{"faculty", models.RoleFaculty, "", "Math", models.RoleFaculty, true},
		{"legacy program only", "", "CS", "", models.RoleStudent, true},
		{"legacy department only", "", "", "Math", models.RoleFaculty, true},
		{"legacy both set", "", "CS", "Math", "", false},
		{"student without program", models.RoleStudent, "", "Math", "", false},
		{"nothing", "", "", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := models.AffiliationFromFields(tc.role, tc.program, tc.department)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if got.Role() != tc.wantRole {
				t.Fatalf("expected role %q, got %q", tc.wantRole, got.Role())
			}
		})
	}
}

func TestCloneDetachesSlicesAndPointers(t *testing.T) {
	bio := "hello"
	u := &models.User{Username: "alice", Interests: []string{"chess"}, Bio: &bio}

	c := u.Clone()
	c.Interests[0] = "go"
	*c.Bio = "changed"

	if u.Interests[0] != "chess" {
		t.Fatalf("clone shares interests slice")
	}
	if *u.Bio != "hello" {
		t.Fatalf("clone shares bio pointer")
	}
}
