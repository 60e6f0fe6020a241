package controllers

import (
	"net/http"

	"github.com/harvestlink/agrimarket/api/middleware"
	"github.com/harvestlink/agrimarket/api/responses"
	"github.com/harvestlink/agrimarket/api/validators"
	"github.com/harvestlink/agrimarket/internal/contact"
	"github.com/harvestlink/agrimarket/internal/site"
	pkgerrors "github.com/harvestlink/agrimarket/pkg/errors"
	"github.com/harvestlink/agrimarket/pkg/logger"
)

const maxFormBytes = 64 << 10

// ContactSubmit accepts a JSON inquiry.
func ContactSubmit(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var in contact.Inquiry
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		receipt, err := svc.Submit(ctx, middleware.ClientIP(r), in)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

// ContactForm handles the HTML form post, redirecting on success and
// re-rendering the form with field errors otherwise.
func (p Pages) ContactForm(svc contact.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			p.renderContact(w, r, site.ContactForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form"))
			return
		}
		in := contact.Inquiry{
			Name:    r.PostForm.Get("name"),
			Email:   r.PostForm.Get("email"),
			Subject: r.PostForm.Get("subject"),
			Message: r.PostForm.Get("message"),
		}
		if _, err := svc.Submit(ctx, middleware.ClientIP(r), in); err != nil {
			responses.LogError(ctx, p.Logger, err)
			p.renderContact(w, r, site.ContactForm{
				Name:    in.Name,
				Email:   in.Email,
				Subject: in.Subject,
				Message: in.Message,
				Errors:  validators.FieldErrors(err),
			}, err)
			return
		}
		http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
	}
}

func (p Pages) renderContact(w http.ResponseWriter, r *http.Request, form site.ContactForm, err error) {
	p.render(w, r, responses.StatusFor(err), site.PageData{
		Page:    site.PageContact,
		Title:   "Contact",
		Alerts:  []site.Alert{site.NewAlert("error", responses.PublicMessage(err))},
		Content: form,
	})
}
