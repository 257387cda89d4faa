package handler

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"docvault/internal/domain"
	"docvault/internal/service"
	"docvault/internal/service/s3"
)

// Формат delivery-токена: 64 hex-символа в нижнем регистре. Все прочее
// отсекается до обращения к БД.
var tokenRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// DeliveryHandler — единственная неаутентифицированная поверхность
// сервиса. Любой отказ здесь отвечает одинаковым 404: различимые ответы
// позволили бы перебором выяснять существование и состояние токенов.
type DeliveryHandler struct {
	tokenService *service.TokenService
	storage      s3.Storage
}

func NewDeliveryHandler(tokenService *service.TokenService, storage s3.Storage) *DeliveryHandler {
	return &DeliveryHandler{
		tokenService: tokenService,
		storage:      storage,
	}
}

func respondLinkInvalid(w http.ResponseWriter) {
	http.Error(w, "Link is invalid or expired", http.StatusNotFound)
}

// Stream отдает документ для просмотра в браузере (inline)
func (h *DeliveryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.deliver(w, r, domain.PurposePreview)
}

// Download отдает документ как скачивание (attachment)
func (h *DeliveryHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.deliver(w, r, domain.PurposeDownload)
}

func (h *DeliveryHandler) deliver(w http.ResponseWriter, r *http.Request, purpose domain.TokenPurpose) {
	tokenStr := chi.URLParam(r, "token")
	if !tokenRe.MatchString(tokenStr) {
		respondLinkInvalid(w)
		return
	}

	ref, err := h.tokenService.Redeem(r.Context(), tokenStr, purpose)
	if err != nil {
		if !domain.IsTokenError(err) && !errors.Is(err, domain.ErrNotFound) {
			log.Printf("[Delivery] Ошибка погашения токена: %v", err)
		}
		respondLinkInvalid(w)
		return
	}

	obj, err := h.storage.GetObject(r.Context(), ref.StorageKey)
	if err != nil {
		// Токен уже погашен, но файл не отдан — клиент увидит тот же
		// обобщенный ответ, детали останутся в логе и аудите
		log.Printf("[Delivery] Ошибка чтения объекта %s: %v", ref.StorageKey, err)
		respondLinkInvalid(w)
		return
	}
	defer obj.Close()

	// Имя файла для Content-Disposition: ASCII-вариант плюс UTF-8
	encodedName := url.QueryEscape(ref.Name)
	asciiName := strings.ReplaceAll(ref.Name, `"`, `\"`)
	disposition := "inline"
	if purpose == domain.PurposeDownload {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", ref.MIMEType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`, disposition, asciiName, encodedName))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	if obj.ContentLength() > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength(), 10))
	}
	w.WriteHeader(http.StatusOK)

	// Отдаем данные чанками по 32KB со сбросом буфера
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, err := obj.Read(buf)
		if n > 0 {
			nw, ew := w.Write(buf[:n])
			written += int64(nw)
			if ew != nil {
				log.Printf("[Delivery] Клиент оборвал передачу %s после %d байт: %v", ref.DocumentID, written, ew)
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[Delivery] Ошибка чтения из хранилища: %v", err)
			return
		}
	}

	log.Printf("[Delivery] Документ %s отдан (%s, %d байт)", ref.DocumentID, purpose, written)
}
