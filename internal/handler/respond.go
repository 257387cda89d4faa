package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"docvault/internal/auth"
	"docvault/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("[HTTP] Ошибка кодирования ответа: %v", err)
		}
	}
}

// respondError переводит доменные ошибки в HTTP-статусы. Используется
// только на аутентифицированных маршрутах: там клиенту положены точные
// причины отказа. Выдача по токену обрабатывает ошибки отдельно.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, domain.ErrInvalidFolderName):
		http.Error(w, "Invalid folder name", http.StatusBadRequest)
	case errors.Is(err, domain.ErrDuplicateFolderName):
		http.Error(w, "Folder with this name already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrCyclicMove):
		http.Error(w, "Cannot move folder into its own subtree", http.StatusConflict)
	default:
		log.Printf("[HTTP] Внутренняя ошибка: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// requirePrincipal достает принципала из контекста. Отсутствие означает
// маршрут, ошибочно собранный без auth.Middleware.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Principal{}, false
	}
	return principal, true
}
