package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"slugwiki/app/internal/domain/wiki"
	"slugwiki/app/internal/presentation/http/templates"
)

type pageBody struct {
	ID        uint      `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type pageOutput struct {
	Body pageBody
}

type pageListOutput struct {
	Body struct {
		Pages []pageBody `json:"pages"`
	}
}

type optionBody struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type pageOptionsOutput struct {
	Body struct {
		Options []optionBody `json:"options"`
	}
}

type createPageInput struct {
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"255" doc:"Title the slug is generated from"`
		Body  string `json:"body,omitempty"`
	}
}

type pageSlugInput struct {
	Slug string `path:"slug"`
}

type renamePageInput struct {
	Slug string `path:"slug"`
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"255"`
	}
}

type optionListInput struct {
	Name     string `query:"name" default:"page"`
	Selected string `query:"selected"`
}

func (s *Server) registerPageRoutes() {
	huma.Post(s.api, "/pages", s.createPageHandler, created("Create a page"))
	huma.Get(s.api, "/pages", s.listPagesHandler, summary("List pages"))
	huma.Get(s.api, "/pages/options", s.pageOptionsHandler, summary("List page slugs with their titles"))
	huma.Get(s.api, "/pages/options.html", s.pageOptionListHandler, htmlOperation(
		"Render page options as a select element",
		stdhttp.StatusInternalServerError,
	))
	huma.Get(s.api, "/pages/{slug}", s.getPageHandler, summary("Fetch a page by slug"))
	huma.Patch(s.api, "/pages/{slug}", s.renamePageHandler, summary("Rename a page"))
}

func (s *Server) createPageHandler(ctx context.Context, input *createPageInput) (*pageOutput, error) {
	page, err := s.wiki.CreatePage(ctx, input.Body.Title, input.Body.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "creating page", logrus.Fields{"title": input.Body.Title})
	}
	return &pageOutput{Body: toPageBody(*page)}, nil
}

func (s *Server) getPageHandler(ctx context.Context, input *pageSlugInput) (*pageOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	page, err := s.wiki.GetPage(ctx, slug)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading page", logrus.Fields{"slug": slug})
	}
	return &pageOutput{Body: toPageBody(*page)}, nil
}

func (s *Server) renamePageHandler(ctx context.Context, input *renamePageInput) (*pageOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	page, err := s.wiki.RenamePage(ctx, slug, input.Body.Title)
	if err != nil {
		return nil, s.apiError(ctx, err, "renaming page", logrus.Fields{"slug": slug})
	}
	return &pageOutput{Body: toPageBody(*page)}, nil
}

func (s *Server) listPagesHandler(ctx context.Context, _ *struct{}) (*pageListOutput, error) {
	pages, err := s.wiki.ListPages(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing pages", nil)
	}

	out := &pageListOutput{}
	out.Body.Pages = make([]pageBody, 0, len(pages))
	for _, page := range pages {
		out.Body.Pages = append(out.Body.Pages, toPageBody(page))
	}
	return out, nil
}

func (s *Server) pageOptionsHandler(ctx context.Context, _ *struct{}) (*pageOptionsOutput, error) {
	options, err := s.wiki.PageOptions(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing page options", nil)
	}

	out := &pageOptionsOutput{}
	out.Body.Options = make([]optionBody, 0, len(options))
	for _, option := range options {
		out.Body.Options = append(out.Body.Options, optionBody{Slug: option.Slug, Title: option.Title})
	}
	return out, nil
}

func (s *Server) pageOptionListHandler(ctx context.Context, input *optionListInput) (*htmlResponse, error) {
	options, err := s.wiki.PageOptions(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing page options", nil)
		return newHTMLResponse(stdhttp.StatusInternalServerError, []byte(errorFallbackMessage)), nil
	}

	data := templates.OptionListData{
		Name:     input.Name,
		Selected: strings.TrimSpace(input.Selected),
		Options:  make([]templates.OptionView, 0, len(options)),
	}
	for _, option := range options {
		data.Options = append(data.Options, templates.OptionView{Value: option.Slug, Label: option.Title})
	}

	body, err := renderComponent(ctx, templates.OptionList(data))
	if err != nil {
		s.recordError(ctx, err, "rendering page options", nil)
		return newHTMLResponse(stdhttp.StatusInternalServerError, []byte(errorFallbackMessage)), nil
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func toPageBody(page wiki.Page) pageBody {
	return pageBody{
		ID:        page.ID,
		Slug:      page.Slug,
		Title:     page.Title,
		Body:      page.Body,
		CreatedAt: page.CreatedAt,
		UpdatedAt: page.UpdatedAt,
	}
}
