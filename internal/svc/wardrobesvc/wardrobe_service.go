package wardrobesvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkrupp/wardrobe/internal/domain"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	"github.com/mkrupp/wardrobe/internal/repo/account"
	"github.com/mkrupp/wardrobe/internal/repo/content"
	"github.com/mkrupp/wardrobe/internal/repo/item"
	"github.com/mkrupp/wardrobe/internal/util/keylock"
)

// WardrobeService implements the item catalog, uploads, outfit composition and
// content access for authenticated callers. Every method takes the caller's
// username as resolved from the session and only ever touches that account.
type WardrobeService struct {
	accountRepo account.Repository
	itemRepo    item.Repository
	contentRepo content.Repository
	composer    *Composer
	locks       *keylock.KeyLock
	cfg         ContentConfig
	log         logging.Logger
	now         func() time.Time

	uploads prometheus.Counter
	outfits prometheus.Counter
}

// NewWardrobeService creates a new WardrobeService from the given repository factories.
func NewWardrobeService(
	ctx context.Context,
	accountRepoFactory account.RepositoryFactory,
	itemRepoFactory item.RepositoryFactory,
	contentRepoFactory content.RepositoryFactory,
	composer *Composer,
	cfg ContentConfig,
	reg prometheus.Registerer,
) (*WardrobeService, error) {
	accountRepo, err := accountRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new account repo: %w", err)
	}

	itemRepo, err := itemRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new item repo: %w", err)
	}

	contentRepo, err := contentRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new content repo: %w", err)
	}

	svc := &WardrobeService{
		accountRepo: accountRepo,
		itemRepo:    itemRepo,
		contentRepo: contentRepo,
		composer:    composer,
		locks:       keylock.New(),
		cfg:         cfg,
		log:         logging.GetLogger("svc.wardrobesvc.wardrobe_service"),
		now:         time.Now,
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wardrobe_items_uploaded_total",
			Help: "Items successfully uploaded.",
		}),
		outfits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wardrobe_outfits_composed_total",
			Help: "Random outfits composed.",
		}),
	}

	for _, collector := range []prometheus.Collector{svc.uploads, svc.outfits} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return svc, nil
}

// account resolves the caller's own account. A session for an account that no
// longer exists is treated as unauthenticated.
func (s *WardrobeService) account(ctx context.Context, username string) (*domain.Account, error) {
	acct, err := s.accountRepo.GetAccount(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Join(domain.ErrUnauthorized, err)
	} else if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return acct, nil
}

// ListCategories returns the caller's category names in index order.
func (s *WardrobeService) ListCategories(ctx context.Context, username string) (_ []string, err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "list categories failed", "error", err)
		}
	}()

	acct, err := s.account(ctx, username)
	if err != nil {
		return nil, err
	}

	return acct.CategoryNames(), nil
}

// ListItems returns the items of one of the caller's categories in upload order.
// Returns ErrOutOfRange for an invalid category index.
func (s *WardrobeService) ListItems(ctx context.Context, username string, categoryIndex int) (_ []domain.Item, err error) {
	log := s.log.With(logging.Group("category", "index", categoryIndex))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "list items failed", "error", err)
		}
	}()

	acct, err := s.account(ctx, username)
	if err != nil {
		return nil, err
	}

	if _, err := acct.Category(categoryIndex); err != nil {
		return nil, fmt.Errorf("category %d: %w", categoryIndex, err)
	}

	items, err := s.itemRepo.ListItems(ctx, username, categoryIndex)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return items, nil
}

// CreateItem records an item for a file already saved in the caller's namespace.
// Returns ErrOutOfRange for an invalid category index.
func (s *WardrobeService) CreateItem(
	ctx context.Context,
	username string,
	categoryIndex int,
	storedFilename string,
) (_ *domain.Item, err error) {
	acct, err := s.account(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.createItem(ctx, acct, categoryIndex, storedFilename)
}

func (s *WardrobeService) createItem(
	ctx context.Context,
	acct *domain.Account,
	categoryIndex int,
	storedFilename string,
) (_ *domain.Item, err error) {
	if _, err := acct.Category(categoryIndex); err != nil {
		return nil, fmt.Errorf("category %d: %w", categoryIndex, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("new item id: %w", errors.Join(domain.ErrInternal, err))
	}

	newItem := &domain.Item{
		ID:             acct.Username + "-" + id.String(),
		Owner:          acct.Username,
		CategoryIndex:  categoryIndex,
		StoredFilename: storedFilename,
		CreatedAt:      s.now().Unix(),
	}

	if err := s.itemRepo.CreateItem(ctx, newItem); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return newItem, nil
}

// UploadItem validates and stores an image and files it as a new item in the given category.
// The file is written before the item is recorded; if recording fails the file is removed again.
// Uploads by the same account are serialized.
func (s *WardrobeService) UploadItem(
	ctx context.Context,
	username string,
	categoryIndex int,
	originalName string,
	data []byte,
) (newItem *domain.Item, err error) {
	log := s.log.With(logging.Group("upload",
		"category", categoryIndex,
		"filename", originalName,
		"size", len(data),
	))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "upload failed", "error", err)
		} else {
			s.uploads.Inc()
			log.InfoContext(ctx, "item uploaded", "item_id", newItem.ID)
		}
	}()

	acct, err := s.account(ctx, username)
	if err != nil {
		return nil, err
	}

	if _, err := acct.Category(categoryIndex); err != nil {
		return nil, fmt.Errorf("category %d: %w", categoryIndex, err)
	}

	if _, err := CheckUploadConstraints(originalName, data, s.cfg.MaxSize); err != nil {
		return nil, fmt.Errorf("check upload constraints: %w", err)
	}

	unlock, err := s.locks.Lock(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	stored, err := s.contentRepo.Save(ctx, username, originalName, data)
	if err != nil {
		return nil, fmt.Errorf("save content: %w", err)
	}

	newItem, err = s.createItem(ctx, acct, categoryIndex, stored.Filename)
	if err != nil {
		if derr := s.contentRepo.Delete(context.WithoutCancel(ctx), username, stored.Filename); derr != nil {
			log.WarnContext(ctx, "remove orphaned content failed", "error", derr, "stored", stored.Filename)
		}

		return nil, err
	}

	return newItem, nil
}

// RandomOutfit composes one random item per category of the caller's wardrobe.
// Categories without items yield an absent slot.
func (s *WardrobeService) RandomOutfit(ctx context.Context, username string) (_ domain.Outfit, err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "random outfit failed", "error", err)
		} else {
			s.outfits.Inc()
		}
	}()

	acct, err := s.account(ctx, username)
	if err != nil {
		return nil, err
	}

	items, err := s.itemRepo.ListAllItems(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list all items: %w", err)
	}

	itemsByCategory := make([][]domain.Item, len(acct.Categories))

	for _, it := range items {
		if it.CategoryIndex < 0 || it.CategoryIndex >= len(itemsByCategory) {
			log := s.log.With(logging.Group("item", "id", it.ID, "category", it.CategoryIndex))
			log.WarnContext(ctx, "item outside category range")

			continue
		}

		itemsByCategory[it.CategoryIndex] = append(itemsByCategory[it.CategoryIndex], it)
	}

	return s.composer.Compose(itemsByCategory), nil
}

// FetchContent returns a stored file addressed by /<owner>/<filename>.
// The path is authorized against the caller before storage is touched.
func (s *WardrobeService) FetchContent(
	ctx context.Context,
	username string,
	resourcePath string,
) (file *domain.StoredFile, err error) {
	log := s.log.With(logging.Group("content", "path", resourcePath))

	defer func() {
		switch {
		case err == nil:
			log.DebugContext(ctx, "content fetched", "size", file.Size())
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
			log.InfoContext(ctx, "content fetch denied", "error", err)
		default:
			log.ErrorContext(ctx, "content fetch failed", "error", err)
		}
	}()

	owner, filename, err := AuthorizeContentPath(username, resourcePath)
	if err != nil {
		return nil, err
	}

	file, err = s.contentRepo.Read(ctx, owner, filename)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return file, nil
}
