package niforms

import (
	"net/http"

	"go.uber.org/zap"
)

// Handler returns the AJAX endpoint. Requests are dispatched on the
// "action" parameter to the handlers registered with AddAction.
//
// Mount it at AjaxPath:
//
//	mux.Handle(reg.AjaxPath(), reg.Handler())
func (reg *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("action")
		if action == "" {
			action = r.PostFormValue("action")
		}

		reg.mu.RLock()
		h, ok := reg.actions[action]
		reg.mu.RUnlock()
		if !ok {
			reg.logger.Debug("unknown action", zap.String("action", action))
			http.Error(w, "0", http.StatusBadRequest)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (reg *Registry) serveProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := reg.Process(r.Context(), r)
	if err != nil {
		reg.OnError(w, r, err)
		return
	}

	if result.AJAX {
		if err := writeJSON(w, http.StatusOK, result); err != nil {
			reg.logger.Warn("failed to write response", zap.Error(err))
		}
		return
	}

	if err := reg.setNotice(w, result.Flash()); err != nil {
		reg.logger.Warn("failed to set notice cookie", zap.Error(err))
	}
	target := result.RedirectURL
	if target == "" {
		target = Referer(r, "/")
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
