package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/domain/book"
	"github.com/royalbook/royalbook/internal/domain/report"
	"github.com/royalbook/royalbook/internal/http/middlewares"
	"github.com/royalbook/royalbook/internal/utils"
)

type ReportsStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, req report.CreateReportRequest) (report.Report, error)
	List(ctx context.Context) ([]report.Report, error)
	DeleteByBookTx(ctx context.Context, tx pgx.Tx, bookID string) error
}

type BookDeleter interface {
	GetByID(ctx context.Context, id string) (book.Book, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id string) error
}

type ReportsHandler struct {
	repo  ReportsStore
	books BookDeleter
}

func NewReportsHandler(repo ReportsStore, books BookDeleter) *ReportsHandler {
	return &ReportsHandler{repo: repo, books: books}
}

func (h *ReportsHandler) Create(ctx *gin.Context) {
	var req report.CreateReportRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := middlewares.EmailFromContext(ctx)

	if !ok || email == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.ReporterEmail = email

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// reject reports against books that do not exist
	_, err := h.books.GetByID(cctx, req.BookID)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not create report")
		return
	}

	rep, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create report")
		fmt.Println(err)
		return
	}

	ctx.JSON(http.StatusCreated, rep)
}

func (h *ReportsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	reports, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list reports")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count":   len(reports),
		"reports": reports,
	})
}

// DeleteReportedBook takes down a reported listing. The book and all of its
// reports go in one transaction so a retry never finds half the cleanup done.
func (h *ReportsHandler) DeleteReportedBook(ctx *gin.Context) {
	bookID := ctx.Param("bookId")

	if !utils.IsUUID(bookID) {
		RespondBadRequest(ctx, "invalid_id", "book id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	tx, err := h.repo.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not delete book")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	err = h.books.DeleteTx(cctx, tx, bookID)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not delete book")
		fmt.Println(err)
		return
	}

	err = h.repo.DeleteByBookTx(cctx, tx, bookID)

	if err != nil {
		RespondInternal(ctx, "Could not delete book")
		fmt.Println(err)
		return
	}

	err = tx.Commit(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not delete book")
		return
	}

	ctx.Status(http.StatusNoContent)
}
