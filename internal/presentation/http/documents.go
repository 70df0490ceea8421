package http

import (
	"context"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"slugwiki/app/internal/domain/wiki"
)

type revisionBody struct {
	DocumentID string    `json:"document_id"`
	Revision   int       `json:"revision"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"created_at"`
}

type revisionOutput struct {
	Body revisionBody
}

type revisionListOutput struct {
	Body struct {
		Revisions []revisionBody `json:"revisions"`
	}
}

type startDocumentInput struct {
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"255"`
		Body  string `json:"body,omitempty"`
	}
}

type publishRevisionInput struct {
	ID   string `path:"id"`
	Body struct {
		Title string `json:"title" minLength:"1" maxLength:"255"`
		Body  string `json:"body,omitempty"`
	}
}

type documentSlugInput struct {
	Slug string `path:"slug"`
}

type documentIDInput struct {
	ID string `path:"id"`
}

func (s *Server) registerDocumentRoutes() {
	huma.Post(s.api, "/documents", s.startDocumentHandler, created("Start a versioned document"))
	huma.Post(s.api, "/documents/{id}/revisions", s.publishRevisionHandler, created("Publish a new revision"))
	huma.Get(s.api, "/documents/{id}/revisions", s.documentHistoryHandler, summary("List every revision of a document"))
	huma.Get(s.api, "/documents/{slug}", s.getDocumentHandler, summary("Fetch the current revision by slug"))
}

func (s *Server) startDocumentHandler(ctx context.Context, input *startDocumentInput) (*revisionOutput, error) {
	revision, err := s.wiki.StartDocument(ctx, input.Body.Title, input.Body.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "starting document", logrus.Fields{"title": input.Body.Title})
	}
	return &revisionOutput{Body: toRevisionBody(*revision)}, nil
}

func (s *Server) publishRevisionHandler(ctx context.Context, input *publishRevisionInput) (*revisionOutput, error) {
	id := strings.TrimSpace(input.ID)
	revision, err := s.wiki.PublishRevision(ctx, id, input.Body.Title, input.Body.Body)
	if err != nil {
		return nil, s.apiError(ctx, err, "publishing revision", logrus.Fields{"document_id": id})
	}
	return &revisionOutput{Body: toRevisionBody(*revision)}, nil
}

func (s *Server) getDocumentHandler(ctx context.Context, input *documentSlugInput) (*revisionOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	revision, err := s.wiki.GetDocument(ctx, slug)
	if err != nil {
		return nil, s.apiError(ctx, err, "loading document", logrus.Fields{"slug": slug})
	}
	return &revisionOutput{Body: toRevisionBody(*revision)}, nil
}

func (s *Server) documentHistoryHandler(ctx context.Context, input *documentIDInput) (*revisionListOutput, error) {
	id := strings.TrimSpace(input.ID)
	revisions, err := s.wiki.DocumentHistory(ctx, id)
	if err != nil {
		return nil, s.apiError(ctx, err, "listing revisions", logrus.Fields{"document_id": id})
	}

	out := &revisionListOutput{}
	out.Body.Revisions = make([]revisionBody, 0, len(revisions))
	for _, revision := range revisions {
		out.Body.Revisions = append(out.Body.Revisions, toRevisionBody(revision))
	}
	return out, nil
}

func toRevisionBody(revision wiki.Revision) revisionBody {
	return revisionBody{
		DocumentID: revision.DocumentID,
		Revision:   revision.Number,
		Slug:       revision.Slug,
		Title:      revision.Title,
		Body:       revision.Body,
		Current:    revision.Current,
		CreatedAt:  revision.CreatedAt,
	}
}
