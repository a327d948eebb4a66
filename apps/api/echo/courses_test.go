package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
	testutil "github.com/trezcool/academia/tests"
)

var errForbidden = httpErr{Error: "permission denied"}

func Test_courseApi_create(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "Root", "root@test.cd", identity.RoleAdministrator)
	prof, profToken := env.createUser(t, "Prof", "prof@test.cd", identity.RoleInstructor)
	amy, _ := env.createUser(t, "Amy", "amy@test.cd", identity.RoleStudent)
	body := func(name string, instructorID int) []byte {
		return marshalObj(t, enrollment.NewCourse{Name: name, Credits: 3, InstructorID: instructorID})
	}

	env.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/courses", body: body("CS101", prof.ID), wantCode: http.StatusUnauthorized},
		{
			name: "admin required", method: http.MethodPost, path: "/v1/courses", token: profToken, body: body("CS101", prof.ID),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "blank name", method: http.MethodPost, path: "/v1/courses", token: adminToken, body: body("  ", prof.ID),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "not an instructor", method: http.MethodPost, path: "/v1/courses", token: adminToken, body: body("CS101", amy.ID),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "instructor not found"}),
		},
		{
			name: "valid", method: http.MethodPost, path: "/v1/courses", token: adminToken, body: body(" CS101 ", prof.ID),
			wantCode: http.StatusCreated,
			wantData: marshalObj(t, enrollment.Course{ID: 1, Name: "CS101", Credits: 3, InstructorID: prof.ID, IsActive: true}),
		},
	})
}

func Test_courseApi_query(t *testing.T) {
	env := newTestEnv(t)
	prof, token := env.createUser(t, "Prof", "prof@test.cd", identity.RoleInstructor)
	other := testutil.CreateIdentity(t, env.app.IdentityRepo, "Other", "other@test.cd", identity.RoleInstructor)
	math := testutil.CreateCourse(t, env.app.EnrollmentRepo, "MATH200", 4, prof.ID)
	cs := testutil.CreateCourse(t, env.app.EnrollmentRepo, "CS101", 3, other.ID)

	env.run(t, []httpTest{
		{name: "auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized},
		{name: "all", path: "/v1/courses", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, []enrollment.Course{cs, math})},
		{
			name: "by instructor", path: fmt.Sprintf("/v1/courses?instructor_id=%d", prof.ID), token: token,
			wantCode: http.StatusOK, wantData: marshalObj(t, []enrollment.Course{math}),
		},
		{name: "detail", path: fmt.Sprintf("/v1/courses/%d", cs.ID), token: token, wantCode: http.StatusOK, wantData: marshalObj(t, cs)},
		{name: "unknown", path: "/v1/courses/999", token: token, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"})},
		{name: "bad id", path: "/v1/courses/lol", token: token, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "not found"})},
	})
}

func Test_courseApi_enroll(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "Root", "root@test.cd", identity.RoleAdministrator)
	prof := testutil.CreateIdentity(t, env.app.IdentityRepo, "Prof", "prof@test.cd", identity.RoleInstructor)
	amy, amyToken := env.createUser(t, "Amy", "amy@test.cd", identity.RoleStudent)
	course := testutil.CreateCourse(t, env.app.EnrollmentRepo, "CS101", 3, prof.ID)
	path := fmt.Sprintf("/v1/courses/%d/enrollments", course.ID)
	body := func(studentID int, start, end string) []byte {
		return []byte(fmt.Sprintf(`{"student_id": %d, "start_date": %q, "end_date": %q}`, studentID, start, end))
	}

	t.Run("valid", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodPost, path, adminToken, body(amy.ID, "2024-01-08", "2024-05-08")))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var enr enrollment.Enrollment
		decode(t, rec, &enr)
		assert.Equal(t, amy.ID, enr.StudentID)
		assert.Equal(t, course.ID, enr.CourseID)
		assert.Equal(t, testutil.Date(2024, 1, 8), enr.StartDate)
		assert.Nil(t, enr.Grade)
	})

	env.run(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: path, token: amyToken, body: body(amy.ID, "2024-01-08", "2024-05-08"),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "duplicate", method: http.MethodPost, path: path, token: adminToken, body: body(amy.ID, "2024-02-01", "2024-05-08"),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: "student is already enrolled in this course"}),
		},
		{
			name: "malformed date", method: http.MethodPost, path: path, token: adminToken, body: body(amy.ID, "08/01/2024", "2024-05-08"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "end before start", method: http.MethodPost, path: path, token: adminToken, body: body(amy.ID, "2024-05-08", "2024-01-08"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "not a student", method: http.MethodPost, path: path, token: adminToken, body: body(prof.ID, "2024-01-08", "2024-05-08"),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "unknown course", method: http.MethodPost, path: "/v1/courses/999/enrollments", token: adminToken,
			body:     body(amy.ID, "2024-01-08", "2024-05-08"),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"}),
		},
	})

	t.Run("mine", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodGet, "/v1/enrollments/mine", amyToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var enrs []enrollment.Enrollment
		decode(t, rec, &enrs)
		require.Len(t, enrs, 1)
		assert.Equal(t, course.ID, enrs[0].CourseID)
	})
}

func Test_courseApi_recordGrade(t *testing.T) {
	env := newTestEnv(t)
	prof, profToken := env.createUser(t, "Prof", "prof@test.cd", identity.RoleInstructor)
	_, otherToken := env.createUser(t, "Other", "other@test.cd", identity.RoleInstructor)
	amy, amyToken := env.createUser(t, "Amy", "amy@test.cd", identity.RoleStudent)
	course := testutil.CreateCourse(t, env.app.EnrollmentRepo, "CS101", 3, prof.ID)
	enr := testutil.Enroll(t, env.app.EnrollmentRepo, amy.ID, course.ID)
	path := fmt.Sprintf("/v1/enrollments/%d/grade", enr.ID)

	env.run(t, []httpTest{
		{
			name: "students cannot grade", method: http.MethodPut, path: path, token: amyToken, body: []byte(`{"grade": "A+"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "other instructor", method: http.MethodPut, path: path, token: otherToken, body: []byte(`{"grade": "A+"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "invalid letter", method: http.MethodPut, path: path, token: profToken, body: []byte(`{"grade": "Z"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"grade": "grade must be one of A+, A, A-, B+, B, B-, C+, C, C-, D+, D, D-, F"}),
		},
		{
			name: "unknown enrollment", method: http.MethodPut, path: "/v1/enrollments/999/grade", token: profToken, body: []byte(`{"grade": "A"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "enrollment not found"}),
		},
	})

	t.Run("record then clear", func(t *testing.T) {
		rec := env.serve(newAuthRequest(http.MethodPut, path, profToken, []byte(`{"grade": "B+"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got enrollment.Enrollment
		decode(t, rec, &got)
		require.NotNil(t, got.Grade)
		assert.Equal(t, enrollment.GradeBPlus, *got.Grade)
		assert.NotNil(t, got.GradeUpdatedAt)

		rec = env.serve(newAuthRequest(http.MethodPut, path, profToken, []byte(`{"grade": ""}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got = enrollment.Enrollment{}
		decode(t, rec, &got)
		assert.Nil(t, got.Grade)
	})

	t.Run("course roster", func(t *testing.T) {
		rosterPath := fmt.Sprintf("/v1/courses/%d/enrollments", course.ID)
		rec := env.serve(newAuthRequest(http.MethodGet, rosterPath, profToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var enrs []enrollment.Enrollment
		decode(t, rec, &enrs)
		assert.Len(t, enrs, 1)

		rec = env.serve(newAuthRequest(http.MethodGet, rosterPath, otherToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
