package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"unisync/internal/app"
	"unisync/internal/domain/attendance"
	"unisync/internal/domain/session"
)

type submitAttendanceRequest struct {
	SessionID string            `json:"session_id" validate:"required,uuid"`
	Marks     map[string]string `json:"marks" validate:"dive,keys,uuid,endkeys,required"`
}

type rollCallResponse struct {
	State     app.ResolutionState    `json:"state"`
	Session   *session.CourseSession `json:"session"`
	Students  []app.RollCallEntry    `json:"students"`
	CanSubmit bool                   `json:"can_submit"`
}

type submitAttendanceResponse struct {
	Session   *session.CourseSession `json:"session"`
	Inserted  []*attendance.Record   `json:"inserted"`
	Conflicts []uuid.UUID            `json:"conflicts"`
	Marked    map[string]string      `json:"marked"`
}

type submitFailedResponse struct {
	Error      string      `json:"error"`
	StudentIDs []uuid.UUID `json:"student_ids"`
}

func (s *Server) handleGetRollCall(w http.ResponseWriter, r *http.Request) {
	instructorID, courseID, ok := s.instructorAndCourse(w, r)
	if !ok {
		return
	}

	rc, err := s.reports.RollCall(r.Context(), courseID, instructorID, s.now())
	if err != nil {
		s.writeStoreError(w, err, "roll call failed")
		return
	}
	writeJSON(w, http.StatusOK, rollCallResponse{
		State:     rc.Resolution.State,
		Session:   rc.Resolution.Session,
		Students:  rc.Students,
		CanSubmit: rc.CanSubmit,
	})
}

func (s *Server) handlePostAttendance(w http.ResponseWriter, r *http.Request) {
	instructorID, courseID, ok := s.instructorAndCourse(w, r)
	if !ok {
		return
	}

	var req submitAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	marks := make(map[uuid.UUID]attendance.Status, len(req.Marks))
	for k, v := range req.Marks {
		status, err := attendance.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_status")
			return
		}
		marks[uuid.MustParse(k)] = status
	}

	ctx := r.Context()
	sess, err := s.sessions.GetByID(ctx, uuid.MustParse(req.SessionID))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found")
			return
		}
		s.writeStoreError(w, err, "session lookup failed")
		return
	}
	if sess.CourseID != courseID || sess.InstructorID != instructorID {
		writeError(w, http.StatusNotFound, "session_not_found")
		return
	}

	students, err := s.roster.ListByCourse(ctx, courseID)
	if err != nil {
		s.writeStoreError(w, err, "roster lookup failed")
		return
	}

	sub, err := s.recorder.Submit(ctx, sess, students, marks)
	if err != nil {
		var failed *app.SubmitFailedError
		switch {
		case errors.Is(err, app.ErrNothingToSubmit):
			writeJSON(w, http.StatusOK, map[string]string{"message": "nothing_to_submit"})
		case errors.Is(err, app.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid_status")
		case errors.As(err, &failed):
			code, status := "submit_failed", http.StatusInternalServerError
			if errors.Is(err, app.ErrStoreUnavailable) {
				code, status = "store_unavailable", http.StatusServiceUnavailable
			}
			ids := failed.StudentIDs
			if ids == nil {
				ids = []uuid.UUID{}
			}
			writeJSON(w, status, submitFailedResponse{Error: code, StudentIDs: ids})
		default:
			s.writeStoreError(w, err, "attendance submission failed")
		}
		return
	}

	resp := submitAttendanceResponse{
		Session:   sub.Session,
		Inserted:  sub.Inserted,
		Conflicts: sub.Conflicts,
		Marked:    make(map[string]string, len(sub.Marked)),
	}
	if resp.Conflicts == nil {
		resp.Conflicts = []uuid.UUID{}
	}
	for id, status := range sub.Marked {
		resp.Marked[id.String()] = string(status)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetWeeklySessions(w http.ResponseWriter, r *http.Request) {
	instructorID, courseID, ok := s.instructorAndCourse(w, r)
	if !ok {
		return
	}

	summaries, err := s.reports.WeeklySessions(r.Context(), courseID, instructorID, s.now())
	if err != nil {
		s.writeStoreError(w, err, "weekly sessions failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": summaries})
}

func (s *Server) handleGetStudentAttendance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_course_id")
		return
	}
	studentID, err := uuid.Parse(chi.URLParam(r, "studentId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_student_id")
		return
	}
	if claims.UserType == UserTypeStudent {
		if userID, _ := claims.UserID(); userID != studentID {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
	}

	summary, err := s.reports.StudentSummary(r.Context(), courseID, studentID, s.now())
	if err != nil {
		s.writeStoreError(w, err, "student summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) instructorAndCourse(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	claims := claimsFromContext(r.Context())
	instructorID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return uuid.Nil, uuid.Nil, false
	}
	courseID, err := uuid.Parse(chi.URLParam(r, "courseId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_course_id")
		return uuid.Nil, uuid.Nil, false
	}
	return instructorID, courseID, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, app.ErrStoreUnavailable) {
		s.logger.WithError(err).Warn(msg)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	s.logger.WithError(err).Error(msg)
	writeError(w, http.StatusInternalServerError, "internal_error")
}
