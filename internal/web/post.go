package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/media"
	"github.com/erazemk/oglasnik/internal/model"
)

// imageFolder is the bucket folder listing photos are stored under.
const imageFolder = "listings"

type postForm struct {
	Title       string
	Description string
	Price       string
	Category    string
	Location    string
	Condition   string
	Features    string
}

func (s *Server) renderPost(w http.ResponseWriter, r *http.Request, form postForm, errMsg string) {
	data := s.page(r, "post.title", GetWebUser(r.Context()))
	data.Error = errMsg
	status := http.StatusOK
	if errMsg != "" {
		status = http.StatusBadRequest
	}
	s.Templates.RenderStatus(w, status, "post.html", &struct {
		PageData
		Form       postForm
		Conditions []string
	}{
		PageData:   data,
		Form:       form,
		Conditions: model.Conditions,
	})
}

// PostPage handles GET /post.
func (s *Server) PostPage(w http.ResponseWriter, r *http.Request) {
	s.renderPost(w, r, postForm{Condition: model.ConditionGood}, "")
}

// PostSubmit handles POST /post.
func (s *Server) PostSubmit(w http.ResponseWriter, r *http.Request) {
	user := GetWebUser(r.Context())
	token := GetWebToken(r.Context())
	t := func(key string) string { return s.Bundle.T(GetLocale(r.Context()), key) }

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(media.MaxUploadSize + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.renderPost(w, r, postForm{}, t("post.image_too_large"))
			return
		}
		s.renderPost(w, r, postForm{}, t("post.failed"))
		return
	}

	form := postForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Category:    r.FormValue("category"),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Condition:   r.FormValue("condition"),
		Features:    r.FormValue("features"),
	}

	if form.Title == "" {
		s.renderPost(w, r, form, t("post.title_required"))
		return
	}
	if _, _, ok := s.Catalog.Subcategory(form.Category); !ok {
		s.renderPost(w, r, form, t("post.category_required"))
		return
	}
	price, err := strconv.ParseFloat(form.Price, 64)
	if err != nil || price < 0 {
		s.renderPost(w, r, form, t("post.price_invalid"))
		return
	}

	var imageKey string
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()

		img, err := media.Process(file, imageFolder)
		if err != nil {
			if media.IsValidation(err) {
				s.renderPost(w, r, form, err.Error())
				return
			}
			slog.Error("failed to process image", "error", err)
			s.renderPost(w, r, form, t("post.failed"))
			return
		}

		err = s.Backend.Images.Upload(r.Context(), token, img.Key, img.Data, img.MIME)
		if errors.Is(err, backend.ErrDuplicate) {
			s.renderPost(w, r, form, t("post.duplicate_image"))
			return
		}
		if err != nil {
			slog.Error("failed to upload image", "error", err)
			s.renderPost(w, r, form, t("post.failed"))
			return
		}
		imageKey = img.Key
	}

	id, err := s.Backend.Listings.CreateListing(r.Context(), token, model.NewListing{
		SellerID:    user.ID,
		Title:       form.Title,
		Description: form.Description,
		Price:       price,
		Category:    form.Category,
		Location:    form.Location,
		Image:       imageKey,
		Condition:   form.Condition,
		Features:    splitFeatures(form.Features),
	})
	if err != nil {
		slog.Error("failed to create listing", "user", user.ID, "error", err)
		if imageKey != "" {
			if err := s.Backend.Images.Remove(r.Context(), token, imageKey); err != nil {
				slog.Warn("failed to remove orphaned image", "key", imageKey, "error", err)
			}
		}
		s.renderPost(w, r, form, t("post.failed"))
		return
	}

	slog.Info("listing created", "listing", id, "user", user.ID, "image", imageKey)
	http.Redirect(w, r, "/listings/"+url.PathEscape(id), http.StatusSeeOther)
}

// splitFeatures turns one feature per line into a list, dropping blanks.
func splitFeatures(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
