package generated

import (
	"context"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetSwagger(t *testing.T) {
	doc, err := GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger failed: %v", err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI document is invalid: %v", err)
	}

	for _, path := range []string{"/health", "/api/v1/status", "/api/v1/videos", "/videos/{name}"} {
		if doc.Paths.Find(path) == nil {
			t.Errorf("Expected path %s in document", path)
		}
	}

	item := doc.Paths.Find("/videos/{name}")
	if item.Get == nil || item.Head == nil {
		t.Error("Expected GET and HEAD operations on /videos/{name}")
	}
}

type stubServer struct{}

func (stubServer) GetStatus(*gin.Context)                             {}
func (stubServer) ListVideos(*gin.Context)                            {}
func (stubServer) HealthCheck(*gin.Context)                           {}
func (stubServer) GetVideo(*gin.Context, VideoName, GetVideoParams)   {}
func (stubServer) HeadVideo(*gin.Context, VideoName, HeadVideoParams) {}

// TestRegisterHandlersMatchesDocument は登録されるルートがOpenAPI定義と一致することを確認する
func TestRegisterHandlersMatchesDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)

	doc, err := GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger failed: %v", err)
	}

	engine := gin.New()
	RegisterHandlers(engine, stubServer{})

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	want := make(map[string]bool)
	for path, item := range doc.Paths.Map() {
		ginPath := strings.NewReplacer("{", ":", "}", "").Replace(path)
		for method := range item.Operations() {
			want[method+" "+ginPath] = true
		}
	}

	for key := range want {
		if !registered[key] {
			t.Errorf("Expected route %s to be registered", key)
		}
	}
	for key := range registered {
		if !want[key] {
			t.Errorf("Route %s is not in the OpenAPI document", key)
		}
	}
}
