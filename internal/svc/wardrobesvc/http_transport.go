package wardrobesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mkrupp/wardrobe/internal/domain"
	context_ "github.com/mkrupp/wardrobe/internal/infra/context"
	"github.com/mkrupp/wardrobe/internal/infra/logging"
	http_ "github.com/mkrupp/wardrobe/internal/infra/transport/http"
	"github.com/mkrupp/wardrobe/internal/svc/authsvc/authclient"
)

var (
	// ErrNoImage is returned when the upload form carries no image part.
	ErrNoImage = fmt.Errorf("%w: no image", domain.ErrInvalidInput)
	// ErrNoCategory is returned when the upload form carries no parsable category.
	ErrNoCategory = fmt.Errorf("%w: no category", domain.ErrInvalidInput)
)

// ContentPathPrefix is where stored images are served.
const ContentPathPrefix = "/content"

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.SessionCookieConfig

	// MultipartFileName is the form field name of the uploaded image.
	MultipartFileName string `env:"MULTIPART_FILE_NAME" default:"image"`

	// MultipartFormMaxMemory is the part of a multipart form kept in memory; the rest spills to disk.
	// Default is 10MB.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_MEMORY" default:"10485760"`

	// MultipartFormMaxSize bounds the whole upload request body.
	// Default is 32MB.
	MultipartFormMaxSize int64 `env:"MULTIPART_FORM_MAX_SIZE" default:"33554432"`
}

// HTTPTransport handles HTTP requests for the wardrobe service.
type HTTPTransport struct {
	wardrobeSvc *WardrobeService
	authClient  authclient.AuthClient
	log         logging.Logger
	cfg         HTTPTransportConfig
	mux         *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// authClient resolves session cookies for all routes except the ping.
func NewHTTPTransport(
	wardrobeSvc *WardrobeService,
	authClient authclient.AuthClient,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		wardrobeSvc: wardrobeSvc,
		authClient:  authClient,
		log:         logging.GetLogger("svc.wardrobesvc.http_transport"),
		cfg:         cfg,
	}

	protected := func(h http.HandlerFunc) http.Handler {
		return http_.SessionMiddleware(h, authClient, cfg.SessionCookieConfig, ht.log)
	}

	ht.mux = http.NewServeMux()
	ht.mux.HandleFunc("GET /{$}", ht.HandlePing)
	ht.mux.Handle("GET /api/categories/", protected(ht.HandleListCategories))
	ht.mux.Handle("GET /api/items/{category}/", protected(ht.HandleListItems))
	ht.mux.Handle("POST /api/upload_item/", protected(ht.HandleUploadItem))
	ht.mux.Handle("GET /api/outfits/random", protected(ht.HandleRandomOutfit))
	ht.mux.Handle("GET "+ContentPathPrefix+"/{path...}", protected(ht.HandleFetchContent))

	return ht
}

// Routes lists the patterns served by the transport, for mounting on a parent mux.
func (ht *HTTPTransport) Routes() []string {
	return []string{
		"GET /{$}",
		"GET /api/categories/",
		"GET /api/items/{category}/",
		"POST /api/upload_item/",
		"GET /api/outfits/random",
		"GET " + ContentPathPrefix + "/{path...}",
	}
}

// ServeHTTP implements http.Handler and serves the wardrobe endpoints:
// - GET /: Liveness ping
// - GET /api/categories/: List category names
// - GET /api/items/{category}/: List items of a category
// - POST /api/upload_item/: Upload an image into a category
// - GET /api/outfits/random: Compose a random outfit
// - GET /content/{owner}/{filename}: Fetch a stored image.
// All routes but the ping require a session.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

func (ht *HTTPTransport) requestLogger(r *http.Request) logging.Logger {
	return ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
}

// HandlePing answers liveness probes.
func (ht *HTTPTransport) HandlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// HandleListCategories returns the caller's category names.
func (ht *HTTPTransport) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListCategories(w, r)
}

func (ht *HTTPTransport) handleListCategories(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "list categories failed", "error", err)
		}
	}(r.Context())

	username, _ := context_.UsernameFromContext(r.Context())

	categories, err := ht.wardrobeSvc.ListCategories(r.Context(), username)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("list categories: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.CategoriesResponse{Categories: categories})
}

// HandleListItems returns the items filed under the category in the path.
// A category that is not a valid index of the caller's categories is 404.
func (ht *HTTPTransport) HandleListItems(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListItems(w, r)
}

func (ht *HTTPTransport) handleListItems(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "list items failed", "error", err)
		}
	}(r.Context())

	categoryIndex, err := strconv.Atoi(r.PathValue("category"))
	if err != nil {
		err = fmt.Errorf("parse category: %w", errors.Join(domain.ErrOutOfRange, err))
		http_.WriteError(w, err)

		return err
	}

	username, _ := context_.UsernameFromContext(r.Context())

	items, err := ht.wardrobeSvc.ListItems(r.Context(), username, categoryIndex)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("list items: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.ItemsResponse{Clothes: items})
}

// HandleUploadItem stores an uploaded image as a new item.
// Expects a multipart form with a category index and the image file part.
func (ht *HTTPTransport) HandleUploadItem(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUploadItem(w, r)
}

func (ht *HTTPTransport) handleUploadItem(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "item upload failed", "error", err)
		} else {
			log.DebugContext(ctx, "item uploaded")
		}
	}(r.Context())

	filename, data, categoryIndex, err := ht.readUpload(w, r)
	if err != nil {
		http_.WriteError(w, err)

		return err
	}

	username, _ := context_.UsernameFromContext(r.Context())

	newItem, err := ht.wardrobeSvc.UploadItem(r.Context(), username, categoryIndex, filename, data)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("upload item: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.UploadResponse{
		Item: *newItem,
		URL:  ContentPathPrefix + newItem.ContentPath(),
	})
}

func (ht *HTTPTransport) readUpload(
	w http.ResponseWriter,
	r *http.Request,
) (filename string, data []byte, categoryIndex int, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, ht.cfg.MultipartFormMaxSize)

	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		return "", nil, 0, fmt.Errorf("parse multipart form: %w", errors.Join(domain.ErrInvalidInput, err))
	}

	categoryIndex, err = strconv.Atoi(r.FormValue("category"))
	if err != nil {
		return "", nil, 0, fmt.Errorf("parse category: %w", errors.Join(ErrNoCategory, err))
	}

	file, header, err := r.FormFile(ht.cfg.MultipartFileName)
	if err != nil {
		return "", nil, 0, fmt.Errorf("form file: %w", errors.Join(ErrNoImage, err))
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", nil, 0, fmt.Errorf("read %s: %w", header.Filename, errors.Join(domain.ErrInvalidInput, err))
	}

	return header.Filename, data, categoryIndex, nil
}

// HandleRandomOutfit composes one random item per category.
func (ht *HTTPTransport) HandleRandomOutfit(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRandomOutfit(w, r)
}

func (ht *HTTPTransport) handleRandomOutfit(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "random outfit failed", "error", err)
		}
	}(r.Context())

	username, _ := context_.UsernameFromContext(r.Context())

	outfit, err := ht.wardrobeSvc.RandomOutfit(r.Context(), username)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("random outfit: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.OutfitResponse{Outfit: outfit})
}

// HandleFetchContent serves a stored image if it belongs to the caller.
func (ht *HTTPTransport) HandleFetchContent(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleFetchContent(w, r)
}

func (ht *HTTPTransport) handleFetchContent(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.requestLogger(r)

	defer func(ctx context.Context) {
		if err != nil {
			log.DebugContext(ctx, "content fetch failed", "error", err)
		}
	}(r.Context())

	resourcePath := r.PathValue("path")
	username, _ := context_.UsernameFromContext(r.Context())

	file, err := ht.wardrobeSvc.FetchContent(r.Context(), username, "/"+resourcePath)
	if err != nil {
		http_.WriteError(w, err)

		return fmt.Errorf("fetch content: %w", err)
	}

	contentType, ok := DetectImageType(file.Body)
	if !ok {
		contentType = http.DetectContentType(file.Body)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size(), 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write to: %w", err)
	}

	return nil
}
