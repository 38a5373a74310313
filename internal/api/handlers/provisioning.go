package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/solescopeai/site-backend/internal/api/errors"
	"github.com/solescopeai/site-backend/internal/api/middleware"
	"github.com/solescopeai/site-backend/internal/service"
)

// BootstrapTokenHeader — заголовок с bootstrap-токеном для анонимных вызовов.
const BootstrapTokenHeader = "X-Bootstrap-Token"

// ProvisioningHandler — обработчик POST /functions/v1/manage-users.
type ProvisioningHandler struct {
	svc    *service.ProvisioningService
	logger *slog.Logger
}

// NewProvisioningHandler создаёт обработчик управления учётными записями.
func NewProvisioningHandler(svc *service.ProvisioningService, logger *slog.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "provisioning_handler")),
	}
}

// ManageUsers выполняет create_user, migrate_user или delete_user.
func (h *ProvisioningHandler) ManageUsers(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		apierrors.ValidationError(w, "request body is too large or unreadable")
		return
	}

	req, err := service.DecodeAccountRequest(body)
	if err != nil {
		apierrors.FromService(w, err)
		return
	}

	cred := service.Credentials{
		Caller:         middleware.CallerFromContext(r.Context()),
		BootstrapToken: r.Header.Get(BootstrapTokenHeader),
	}

	result, err := h.svc.Execute(r.Context(), cred, req)
	if err != nil {
		if apierrors.StatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error("Ошибка выполнения запроса",
				slog.String("action", req.Action()),
				slog.String("error", err.Error()),
			)
		}
		apierrors.FromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
