package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ha1tch/meditactive/pkg/cache"
	"github.com/ha1tch/meditactive/pkg/engine"
	"github.com/ha1tch/meditactive/pkg/member"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
)

const maxBodyBytes = 1 << 20

// handleCreateMember creates a member with its goals and sessions
func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var cmd models.CreateMemberCommand
	if err := decodeBody(w, r, &cmd); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if valid, details := s.validator.ValidateCreate(cmd); !valid {
		s.writeValidationError(w, details)
		return
	}

	result, err := s.members.CreateMember(r.Context(), cmd)
	if err != nil {
		s.writeMutationError(w, 0, err)
		return
	}

	s.invalidateMember(result.Member.ID)
	s.logger.Info().
		Int64("id", result.Member.ID).
		Int("warnings", len(result.Warnings)).
		Msg("Created member")

	s.writeJSON(w, http.StatusCreated, result)
}

// handleListMembers returns one page of members ordered by id
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	limit, offset, details := pageParams(r)
	if len(details) > 0 {
		s.writeValidationError(w, details)
		return
	}

	members, err := s.members.ListMembers(r.Context(), limit, offset)
	if err != nil {
		s.writeInternalError(w, "Failed to list members", err)
		return
	}
	total, err := s.members.CountMembers(r.Context())
	if err != nil {
		s.writeInternalError(w, "Failed to count members", err)
		return
	}

	s.writeJSON(w, http.StatusOK, models.PagedResponse{
		Data: members,
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(members) < total,
		},
	})
}

// pageParams reads limit and offset. Absent values take the defaults;
// present but out-of-range values are rejected rather than clamped.
func pageParams(r *http.Request) (limit, offset int, details []string) {
	q := r.URL.Query()
	limit = member.DefaultListLimit

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > member.MaxListLimit {
			details = append(details, fmt.Sprintf("limit must be between 1 and %d", member.MaxListLimit))
		} else {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			details = append(details, "offset must be a non-negative integer")
		} else {
			offset = n
		}
	}
	return limit, offset, details
}

// handleGetMember returns a member aggregate, served from cache when possible
func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := s.memberID(w, r)
	if !ok {
		return
	}

	key := cache.MemberKey(id)
	if cached, err := s.cache.Get(r.Context(), key); err == nil {
		s.writeRaw(w, http.StatusOK, cached)
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	gen := s.fills.generation(id)
	agg, err := s.members.GetMember(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("Member with id %d not found", id))
			return
		}
		s.writeInternalError(w, "Failed to get member", err)
		return
	}

	body, err := json.Marshal(models.ListResponse{Data: agg})
	if err != nil {
		s.writeInternalError(w, "Failed to encode member", err)
		return
	}
	// A mutation that committed while we were loading may already have
	// invalidated this key; storing our copy then would serve stale data.
	stored := s.fills.fill(id, gen, func() {
		if err := s.cache.Set(r.Context(), key, body); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	})
	if !stored {
		s.logger.Debug().Int64("id", id).Msg("Skipped cache fill after concurrent write")
	}

	s.writeRaw(w, http.StatusOK, body)
}

// handleUpdateMember serves both PUT and PATCH with sparse semantics
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := s.memberID(w, r)
	if !ok {
		return
	}

	var cmd models.UpdateMemberCommand
	if err := decodeBody(w, r, &cmd); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if valid, details := s.validator.ValidateUpdate(cmd); !valid {
		s.writeValidationError(w, details)
		return
	}

	result, err := s.members.UpdateMember(r.Context(), id, cmd)
	if err != nil {
		s.writeMutationError(w, id, err)
		return
	}

	s.invalidateMember(id)
	s.logger.Info().
		Int64("id", id).
		Int("warnings", len(result.Warnings)).
		Msg("Updated member")

	s.writeJSON(w, http.StatusOK, result)
}

// handleDeleteMember removes a member and its orphaned sessions
func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := s.memberID(w, r)
	if !ok {
		return
	}

	if err := s.members.DeleteMember(r.Context(), id); err != nil {
		s.writeMutationError(w, id, err)
		return
	}

	s.invalidateMember(id)
	s.logger.Info().Int64("id", id).Msg("Deleted member")

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) memberID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dst)
}

// writeMutationError maps engine errors onto status codes
func (s *Server) writeMutationError(w http.ResponseWriter, id int64, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("Member with id %d not found", id))
	case errors.Is(err, storage.ErrDuplicateIdentity):
		s.writeError(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, member.ErrRequiredField):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrInvalidRange):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.writeInternalError(w, "Failed to save member", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	var resp models.ErrorResponse
	resp.Error.Message = message
	resp.Error.Status = status
	s.writeJSON(w, status, resp)
}

func (s *Server) writeValidationError(w http.ResponseWriter, details []string) {
	var resp models.ErrorResponse
	resp.Error.Message = "Validation failed"
	resp.Error.Status = http.StatusBadRequest
	resp.Error.Details = details
	s.writeJSON(w, http.StatusBadRequest, resp)
}

// writeInternalError logs err under a fresh error id. The cause reaches the
// client only in debug mode.
func (s *Server) writeInternalError(w http.ResponseWriter, message string, err error) {
	errorID := uuid.NewString()
	s.logger.Error().Err(err).Str("error_id", errorID).Msg(message)

	var resp models.ErrorResponse
	resp.Error.Message = message
	resp.Error.Status = http.StatusInternalServerError
	resp.Error.ErrorID = errorID
	if s.config.Debug {
		resp.Error.Details = err.Error()
	}
	s.writeJSON(w, http.StatusInternalServerError, resp)
}

func (s *Server) invalidateMember(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.fills.invalidate(id, func() {
		if err := s.cache.Delete(ctx, cache.MemberKey(id)); err != nil {
			s.logger.Warn().Err(err).Int64("id", id).Msg("Cache invalidation failed")
		}
	})
}
