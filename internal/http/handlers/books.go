package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbook/royalbook/internal/cache"
	"github.com/royalbook/royalbook/internal/config"
	"github.com/royalbook/royalbook/internal/domain/book"
	"github.com/royalbook/royalbook/internal/domain/job"
	"github.com/royalbook/royalbook/internal/domain/user"
	"github.com/royalbook/royalbook/internal/http/middlewares"
	"github.com/royalbook/royalbook/internal/jobs"
	"github.com/royalbook/royalbook/internal/utils"
)

type BooksStore interface {
	Create(ctx context.Context, req book.CreateBookRequest) (book.Book, error)
	GetByID(ctx context.Context, id string) (book.Book, error)
	Delete(ctx context.Context, id string) error
	ListBySeller(ctx context.Context, sellerEmail string) ([]book.Book, error)
	ListByCategory(ctx context.Context, category string) ([]book.Book, error)
	Categories(ctx context.Context) ([]string, error)
	ToggleAdvertise(ctx context.Context, id string) (bool, error)
}

type JobsCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type BooksHandler struct {
	repo       BooksStore
	jobsRepo   JobsCreator // nil disables report cleanup enqueues
	categories *cache.TTL[[]string]
}

func NewBooksHandler(repo BooksStore, jobsRepo JobsCreator) *BooksHandler {
	return &BooksHandler{
		repo:       repo,
		jobsRepo:   jobsRepo,
		categories: cache.NewTTL[[]string](30 * time.Second),
	}
}

func (h *BooksHandler) Create(ctx *gin.Context) {
	var req book.CreateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, ok := middlewares.EmailFromContext(ctx)

	if !ok || email == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	req.SellerEmail = email

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create book")
		fmt.Println(err)
		return
	}

	// a new listing may introduce a category
	h.categories.Invalidate()

	ctx.JSON(http.StatusCreated, b)
}

func (h *BooksHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", "book id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not load book")
		return
	}

	ctx.JSON(http.StatusOK, b)
}

// Delete removes a listing. Sellers can only remove their own; admins can
// remove anything.
func (h *BooksHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", "book id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not delete book")
		return
	}

	if !h.canManage(ctx, b) {
		RespondForbidden(ctx, "You can only manage your own listings")
		return
	}

	err = h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not delete book")
		return
	}

	h.categories.Invalidate()

	// reports on the listing are now dangling; clean them up asynchronously
	h.enqueueReportCleanup(cctx, id)

	ctx.Status(http.StatusNoContent)
}

func (h *BooksHandler) enqueueReportCleanup(ctx context.Context, bookID string) {
	if h.jobsRepo == nil {
		return
	}

	payload, err := jobs.ReportCleanupPayload{BookID: bookID}.JSON()

	if err != nil {
		fmt.Println(err)
		return
	}

	key := "report:cleanup:" + bookID

	_, err = h.jobsRepo.Create(ctx, job.CreateRequest{
		Type:           jobs.TypeReportCleanup,
		Payload:        payload,
		IdempotencyKey: &key,
	})

	// the listing is gone either way; a lost enqueue only delays cleanup
	if err != nil {
		fmt.Println(err)
	}
}

func (h *BooksHandler) ListBySeller(ctx *gin.Context) {
	email := ctx.Param("email")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	books, err := h.repo.ListBySeller(cctx, email)

	if err != nil {
		RespondInternal(ctx, "Could not list books")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"count": len(books),
		"books": books,
	})
}

func (h *BooksHandler) ListByCategory(ctx *gin.Context) {
	category := ctx.Param("name")

	if category == "" {
		RespondBadRequest(ctx, "category name is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	books, err := h.repo.ListByCategory(cctx, category)

	if err != nil {
		RespondInternal(ctx, "Could not list books")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"category": category,
		"count":    len(books),
		"books":    books,
	})
}

func (h *BooksHandler) Categories(ctx *gin.Context) {
	cached, ok := h.categories.Get()

	if ok {
		ctx.JSON(http.StatusOK, gin.H{"categories": cached})
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	categories, err := h.repo.Categories(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}

	h.categories.Set(categories)

	ctx.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ToggleAdvertise flips the advertise flag in a single statement and returns
// the state the flip produced, so two concurrent toggles always land on a
// well defined final value.
func (h *BooksHandler) ToggleAdvertise(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "invalid_id", "book id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not update book")
		return
	}

	if !h.canManage(ctx, b) {
		RespondForbidden(ctx, "You can only manage your own listings")
		return
	}

	advertise, err := h.repo.ToggleAdvertise(cctx, id)

	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			RespondNotFound(ctx, "Book not found")
			return
		}

		RespondInternal(ctx, "Could not update book")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":        id,
		"advertise": advertise,
	})
}

func (h *BooksHandler) canManage(ctx *gin.Context, b book.Book) bool {
	email, _ := middlewares.EmailFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	return role == user.RoleAdmin || b.SellerEmail == email
}
