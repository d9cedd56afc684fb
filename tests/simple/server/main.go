// Command server is a fake downstream used to try the gateway locally. It
// serves a REST API under / and a GraphQL API under /graphql.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hanpama/fetchgraph/internal/fetchrt"
	"github.com/hanpama/fetchgraph/internal/schema"
	gqlserver "github.com/hanpama/fetchgraph/internal/server"
)

const graphSDL = `
type Organization {
  id: ID!
  name: String
  description: String
  memberCount: Int
  members: [Member]
}

type Member {
  id: ID!
  name: String
  email: String
}

type Query {
  organization(id: ID!): Organization
}
`

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	router, err := newRouter(newStore(), logger)
	if err != nil {
		logger.Fatal("router", zap.Error(err))
	}
	logger.Info("fake downstream listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, router); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func newRouter(s *store, logger *zap.Logger) (http.Handler, error) {
	graph, err := newGraphHandler(s)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": s.listUsers()})
	})
	r.Post("/users", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Age   int    `json:"age"`
		}
		if err := decodeInput(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		u, err := s.createUser(in.Email, in.Name, in.Age)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "INVALID", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": u})
	})
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.user(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
			return
		}
		plan := "free"
		if u.IsActive {
			plan = "pro"
		}
		w.Header().Add("Set-Cookie", "last-user="+u.ID+"; Path=/")
		writeJSON(w, http.StatusOK, map[string]any{"data": u, "meta": map[string]any{"plan": plan}})
	})
	r.Delete("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !s.deleteUser(chi.URLParam(r, "id")) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "no such user")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/users/{id}/posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": s.postsBy(chi.URLParam(r, "id"))})
	})
	r.Post("/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		s.saveNote(chi.URLParam(r, "id"), string(body))
		writeJSON(w, http.StatusOK, map[string]any{"text": fmt.Sprintf("saved %d bytes as %s", len(body), r.Header.Get("Content-Type"))})
	})
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	})
	r.Method(http.MethodPost, "/graphql", graph)
	return r, nil
}

// newGraphHandler serves organizations over GraphQL with the gateway's own
// executor.
func newGraphHandler(s *store) (http.Handler, error) {
	sch, err := schema.BuildFromSDL(graphSDL)
	if err != nil {
		return nil, err
	}
	sch.GetQueryType().Field("organization").SetResolver(schema.ResolverFunc(func(ctx context.Context, p schema.ResolveParams) (schema.Resolved, error) {
		id, _ := p.Args["id"].(string)
		o, ok := s.organization(id)
		if !ok {
			return schema.Resolved{}, fmt.Errorf("organization %q not found", id)
		}
		members := []any{}
		for _, u := range s.members(o.ID) {
			members = append(members, map[string]any{"id": u.ID, "name": u.Name, "email": u.Email})
		}
		return schema.Resolved{Value: map[string]any{
			"id":          o.ID,
			"name":        o.Name,
			"description": o.Description,
			"memberCount": len(members),
			"members":     members,
		}}, nil
	}))
	return gqlserver.New(fetchrt.NewRuntime(sch), sch)
}

func decodeInput(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return err
		}
		b, _ := json.Marshal(map[string]any{"email": r.PostForm.Get("email"), "name": r.PostForm.Get("name")})
		return json.Unmarshal(b, v)
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
