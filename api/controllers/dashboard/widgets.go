package dashboard

import (
	"net/http"

	"github.com/angelmondragon/gemline-backend/api/responses"
	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

func Widgets(service dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		widgets, err := service.Widgets(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, widgets)
	}
}

func RefreshWidgets(service dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		widgets, err := service.RefreshWidgets(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, widgets, "dashboard widgets refreshed")
	}
}
