package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsurvey/internal/cache"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

// DuplicateCheck is the outcome of checking one submission
type DuplicateCheck struct {
	// Existing is set when the submission repeats a stored response
	Existing *model.Response

	fingerprint string
	claimed     bool
}

// DuplicateSuppressor detects a client resubmitting the same answers within
// a short window, typically after a retry on a flaky connection
type DuplicateSuppressor struct {
	responseRepo repository.ResponseRepo
	guard        cache.SubmissionGuard
	window       time.Duration
	now          func() time.Time
}

// NewDuplicateSuppressor creates a new duplicate suppressor
func NewDuplicateSuppressor(responseRepo repository.ResponseRepo, window time.Duration) *DuplicateSuppressor {
	return &DuplicateSuppressor{
		responseRepo: responseRepo,
		window:       window,
		now:          time.Now,
	}
}

// SetGuard enables the Redis claim that serializes identical concurrent submissions
func (d *DuplicateSuppressor) SetGuard(guard cache.SubmissionGuard) {
	d.guard = guard
}

// Check looks for a stored response equal to answers. A returned check with a
// nil Existing must be finished with Commit or Abort.
func (d *DuplicateSuppressor) Check(ctx context.Context, key repository.SubmitterKey, answers []model.Answer) (*DuplicateCheck, error) {
	canonical, err := CanonicalAnswers(answers)
	if err != nil {
		return nil, err
	}
	check := &DuplicateCheck{}

	if d.guard != nil {
		check.fingerprint = Fingerprint(key, canonical)
		existing, err := d.claim(ctx, check)
		if err != nil || existing != nil {
			check.Existing = existing
			return check, err
		}
	}

	latest, err := d.responseRepo.FindLatestSince(ctx, key, d.now().Add(-d.window))
	if err != nil {
		d.Abort(ctx, check)
		return nil, err
	}
	if latest != nil {
		prev, err := CanonicalAnswers(latest.Answers)
		if err == nil && bytes.Equal(prev, canonical) {
			check.Existing = latest
			d.Commit(ctx, check, latest.ID.Hex())
			return check, nil
		}
	}
	return check, nil
}

// claim takes the fingerprint or resolves who holds it. Redis failures are
// logged and the check carries on without the guard.
func (d *DuplicateSuppressor) claim(ctx context.Context, check *DuplicateCheck) (*model.Response, error) {
	ok, err := d.guard.Claim(ctx, check.fingerprint, d.window)
	if err != nil {
		log.Warnf("submission guard unavailable: %v", err)
		return nil, nil
	}
	if ok {
		check.claimed = true
		return nil, nil
	}

	holder, err := d.guard.Lookup(ctx, check.fingerprint)
	if err != nil {
		log.Warnf("submission guard lookup failed: %v", err)
		return nil, nil
	}
	switch holder {
	case "":
		// Expired between the claim and the lookup
		return nil, nil
	case cache.GuardPending:
		return nil, ErrDuplicateInFlight
	}

	oid, err := primitive.ObjectIDFromHex(holder)
	if err != nil {
		return nil, nil
	}
	return d.responseRepo.GetByID(ctx, oid)
}

// Commit binds the claimed fingerprint to the stored response
func (d *DuplicateSuppressor) Commit(ctx context.Context, check *DuplicateCheck, responseID string) {
	if d.guard == nil || !check.claimed {
		return
	}
	if err := d.guard.Bind(ctx, check.fingerprint, responseID, d.window); err != nil {
		log.Warnf("submission guard bind failed: %v", err)
	}
	check.claimed = false
}

// Abort releases a claim after a failed insert so the client can retry
func (d *DuplicateSuppressor) Abort(ctx context.Context, check *DuplicateCheck) {
	if d.guard == nil || check == nil || !check.claimed {
		return
	}
	if err := d.guard.Release(ctx, check.fingerprint); err != nil {
		log.Warnf("submission guard release failed: %v", err)
	}
	check.claimed = false
}

// Fingerprint identifies a submitter's answer set within a survey
func Fingerprint(key repository.SubmitterKey, canonical []byte) string {
	user := "anon"
	if key.UserID != nil {
		user = "user:" + *key.UserID
	} else if key.IPAddress != "" {
		user = "anon:" + key.IPAddress
	}

	h := sha256.New()
	h.Write([]byte(key.SurveyID))
	h.Write([]byte{'|'})
	h.Write([]byte(user))
	h.Write([]byte{'|'})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalAnswers renders answers as JSON with BSON containers converted to
// plain maps and slices and every number as float64, so a freshly decoded
// request and a stored document compare byte for byte.
func CanonicalAnswers(answers []model.Answer) ([]byte, error) {
	plain := make([]interface{}, 0, len(answers))
	for _, a := range answers {
		plain = append(plain, map[string]interface{}{
			"questionId": a.QuestionID,
			"label":      a.Label,
			"value":      canonicalValue(a.Value),
		})
	}
	return json.Marshal(plain)
}

func canonicalValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = canonicalValue(e.Value)
		}
		return m
	case primitive.M:
		return canonicalMap(val)
	case map[string]interface{}:
		return canonicalMap(val)
	case primitive.A:
		return canonicalSlice(val)
	case []interface{}:
		return canonicalSlice(val)
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	}
	return v
}

func canonicalMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = canonicalValue(v)
	}
	return out
}

func canonicalSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = canonicalValue(v)
	}
	return out
}
