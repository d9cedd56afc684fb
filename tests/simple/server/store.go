package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	IsActive       bool   `json:"is_active"`
	OrganizationID string `json:"organization_id"`
}

type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
	AuthorID  string `json:"author_id"`
}

type store struct {
	mu            sync.RWMutex
	users         map[string]*User
	usersByEmail  map[string]*User
	organizations map[string]*Organization
	posts         map[string]*Post
	notes         map[string]string

	nextID int
}

func newStore() *store {
	s := &store{
		users:         make(map[string]*User),
		usersByEmail:  make(map[string]*User),
		organizations: make(map[string]*Organization),
		posts:         make(map[string]*Post),
		notes:         make(map[string]string),
		nextID:        3,
	}
	s.seed()
	return s
}

func (s *store) seed() {
	for _, o := range []*Organization{
		{ID: "org-1", Name: "Tech Corp", Description: "A technology company"},
		{ID: "org-2", Name: "Design Studio", Description: "Creative design agency"},
	} {
		s.organizations[o.ID] = o
	}
	for _, u := range []*User{
		{ID: "user-1", Email: "john@example.com", Name: "John Doe", Age: 30, IsActive: true, OrganizationID: "org-1"},
		{ID: "user-2", Email: "jane@example.com", Name: "Jane Smith", Age: 28, IsActive: true, OrganizationID: "org-1"},
		{ID: "user-3", Email: "bob@example.com", Name: "Bob Johnson", Age: 35, OrganizationID: "org-2"},
	} {
		s.users[u.ID] = u
		s.usersByEmail[u.Email] = u
	}
	for _, p := range []*Post{
		{ID: "post-1", Title: "Getting Started with Go", Content: "Go is a statically typed, compiled programming language...", Published: true, AuthorID: "user-1"},
		{ID: "post-2", Title: "GraphQL Best Practices", Content: "When designing GraphQL APIs, consider these best practices...", Published: true, AuthorID: "user-2"},
		{ID: "post-3", Title: "Draft Post", Content: "This is a draft post...", AuthorID: "user-1"},
	} {
		s.posts[p.ID] = p
	}
}

func (s *store) user(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *store) listUsers() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) createUser(email, name string, age int) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if _, exists := s.usersByEmail[email]; exists {
		return nil, fmt.Errorf("email %s is already taken", email)
	}
	s.nextID++
	u := &User{ID: fmt.Sprintf("user-%d", s.nextID), Email: email, Name: name, Age: age, IsActive: true}
	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u
	return u, nil
}

func (s *store) deleteUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false
	}
	delete(s.users, id)
	delete(s.usersByEmail, u.Email)
	return true
}

func (s *store) postsBy(authorID string) []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Post{}
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) organization(id string) (*Organization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.organizations[id]
	return o, ok
}

func (s *store) members(orgID string) []*User {
	out := []*User{}
	for _, u := range s.listUsers() {
		if u.OrganizationID == orgID {
			out = append(out, u)
		}
	}
	return out
}

func (s *store) saveNote(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[id] = text
}
