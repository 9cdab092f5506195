package workerapi

import (
	"net/http"
	"strconv"
	"strings"

	"parcel-gateway/internal/handler/http/auth"
	"parcel-gateway/internal/handler/http/respond"
	"parcel-gateway/internal/usecase/dispatch"
)

// WorkHandler serves GET /internal/work.
type WorkHandler struct{ Svc *dispatch.Service }

func (h WorkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platforms := splitPlatforms(q["platforms"])
	if len(platforms) == 0 {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "platforms is required")
		return
	}
	// Unparseable capacity reads as unset.
	capacity, _ := strconv.Atoi(q.Get("capacity"))

	batch, err := h.Svc.Work(r.Context(), auth.FromContext(r.Context()).WorkerID, platforms, capacity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, batch)
}

// splitPlatforms accepts both ?platforms=a&platforms=b and ?platforms=a,b,
// keeping first-seen order and dropping duplicates.
func splitPlatforms(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range raw {
		for p := range strings.SplitSeq(v, ",") {
			p = strings.TrimSpace(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
