package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/subnido/subgate/models"
	"github.com/subnido/subgate/repositories"
	"github.com/subnido/subgate/services/account"
	"github.com/subnido/subgate/services/subdomain"
)

type adminHandlerFixture struct {
	handler      *AdminHandler
	subdomains   *MockSubdomainRepository
	accounts     *MockAccountRepository
	auditEntries *MockAuditRepository
}

func newAdminHandlerFixture(t *testing.T) *adminHandlerFixture {
	t.Helper()
	logger := zap.NewNop()
	auditSvc := newAuditService(t)

	f := &adminHandlerFixture{
		subdomains:   new(MockSubdomainRepository),
		accounts:     new(MockAccountRepository),
		auditEntries: new(MockAuditRepository),
	}
	subdomainSvc := subdomain.NewService(f.subdomains, stubTxManager{}, auditSvc, logger)
	accountSvc := account.NewService(f.accounts, stubTxManager{}, auditSvc, logger)
	f.handler = NewAdminHandler(subdomainSvc, accountSvc, f.auditEntries, logger)
	return f
}

func boolPtr(b bool) *bool { return &b }

func TestHandleListPendingSubdomains(t *testing.T) {
	t.Run("operator lists queue", func(t *testing.T) {
		f := newAdminHandlerFixture(t)

		pending := []*models.Subdomain{
			models.NewSubdomain(uuid.New(), "oldest", "https://a.example.com", ""),
		}
		f.subdomains.On("ListPending", mock.Anything, 50, 0).Return(pending, nil)

		req := withOperator(withSession(httptest.NewRequest(http.MethodGet, "/api/v1/admin/subdomains/pending", nil), testSession()))
		w := httptest.NewRecorder()

		f.handler.HandleListPending(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		f.subdomains.AssertExpectations(t)
	})

	t.Run("non-operator forbidden", func(t *testing.T) {
		f := newAdminHandlerFixture(t)

		req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/admin/subdomains/pending", nil), testSession())
		w := httptest.NewRecorder()

		f.handler.HandleListPending(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		f.subdomains.AssertNotCalled(t, "ListPending")
	})
}

func TestHandleReviewSubdomain(t *testing.T) {
	t.Run("approve pending request", func(t *testing.T) {
		f := newAdminHandlerFixture(t)
		session := testSession()

		sub := models.NewSubdomain(uuid.New(), "myblog", "https://a.example.com", "")
		f.subdomains.On("GetByID", mock.Anything, sub.ID).Return(sub, nil)
		f.subdomains.On("UpdateStatus", mock.Anything, sub.ID, models.SubdomainApproved, session.SubjectID, mock.Anything).Return(nil)

		body, _ := json.Marshal(ReviewSubdomainRequest{Approve: boolPtr(true), Note: "looks good"})
		req := withOperator(withSession(httptest.NewRequest(http.MethodPost, "/api/v1/admin/subdomains/"+sub.ID.String()+"/review", bytes.NewReader(body)), session))
		req = withURLParam(req, "id", sub.ID.String())
		w := httptest.NewRecorder()

		f.handler.HandleReview(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, string(models.SubdomainApproved), data["status"])

		f.subdomains.AssertExpectations(t)
	})

	t.Run("already reviewed conflicts", func(t *testing.T) {
		f := newAdminHandlerFixture(t)
		session := testSession()

		sub := models.NewSubdomain(uuid.New(), "myblog", "https://a.example.com", "")
		f.subdomains.On("GetByID", mock.Anything, sub.ID).Return(sub, nil)
		f.subdomains.On("UpdateStatus", mock.Anything, sub.ID, models.SubdomainDenied, session.SubjectID, mock.Anything).Return(repositories.ErrNotFound)

		body, _ := json.Marshal(ReviewSubdomainRequest{Approve: boolPtr(false)})
		req := withOperator(withSession(httptest.NewRequest(http.MethodPost, "/api/v1/admin/subdomains/"+sub.ID.String()+"/review", bytes.NewReader(body)), session))
		req = withURLParam(req, "id", sub.ID.String())
		w := httptest.NewRecorder()

		f.handler.HandleReview(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing decision rejected", func(t *testing.T) {
		f := newAdminHandlerFixture(t)

		body, _ := json.Marshal(map[string]string{"note": "no decision"})
		req := withOperator(withSession(httptest.NewRequest(http.MethodPost, "/api/v1/admin/subdomains/"+uuid.NewString()+"/review", bytes.NewReader(body)), testSession()))
		req = withURLParam(req, "id", uuid.NewString())
		w := httptest.NewRecorder()

		f.handler.HandleReview(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.subdomains.AssertNotCalled(t, "UpdateStatus")
	})
}

func TestHandleSetBan(t *testing.T) {
	t.Run("ban account", func(t *testing.T) {
		f := newAdminHandlerFixture(t)
		target := uuid.New()

		f.accounts.On("SetBanned", mock.Anything, target, true, mock.MatchedBy(func(r *string) bool {
			return r != nil && *r == "abuse"
		})).Return(nil)

		body, _ := json.Marshal(SetBanRequest{Banned: boolPtr(true), Reason: "abuse"})
		req := withOperator(withSession(httptest.NewRequest(http.MethodPost, "/api/v1/admin/accounts/"+target.String()+"/ban", bytes.NewReader(body)), testSession()))
		req = withURLParam(req, "id", target.String())
		w := httptest.NewRecorder()

		f.handler.HandleSetBan(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		f.accounts.AssertExpectations(t)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newAdminHandlerFixture(t)
		target := uuid.New()

		f.accounts.On("SetBanned", mock.Anything, target, true, mock.Anything).Return(repositories.ErrNotFound)

		body, _ := json.Marshal(SetBanRequest{Banned: boolPtr(true)})
		req := withOperator(withSession(httptest.NewRequest(http.MethodPost, "/api/v1/admin/accounts/"+target.String()+"/ban", bytes.NewReader(body)), testSession()))
		req = withURLParam(req, "id", target.String())
		w := httptest.NewRecorder()

		f.handler.HandleSetBan(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleListAudit(t *testing.T) {
	t.Run("filter by action", func(t *testing.T) {
		f := newAdminHandlerFixture(t)

		entries := []*models.AuditEntry{
			models.NewAuditEntry(uuid.New(), models.AuditActionAdminPageAccess, "route"),
		}
		f.auditEntries.On("GetByAction", mock.Anything, models.AuditActionAdminPageAccess, 50, 0).Return(entries, nil)

		req := withOperator(withSession(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit?action=admin_page_access", nil), testSession()))
		w := httptest.NewRecorder()

		f.handler.HandleListAudit(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		f.auditEntries.AssertExpectations(t)
	})

	t.Run("filter by actor", func(t *testing.T) {
		f := newAdminHandlerFixture(t)
		actor := uuid.New()

		f.auditEntries.On("GetByActor", mock.Anything, actor, 50, 0).Return([]*models.AuditEntry{}, nil)

		req := withOperator(withSession(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit?actor="+actor.String(), nil), testSession()))
		w := httptest.NewRecorder()

		f.handler.HandleListAudit(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing filter rejected", func(t *testing.T) {
		f := newAdminHandlerFixture(t)

		req := withOperator(withSession(httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit", nil), testSession()))
		w := httptest.NewRecorder()

		f.handler.HandleListAudit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
