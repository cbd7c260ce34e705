package gtasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"taskflow-backend/internal/task/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"
)

// DefaultTasklist is used when no list title is configured
const DefaultTasklist = "@default"

// Client mirrors local tasks onto a single Google Tasks list
type Client struct {
	srv           *tasks.Service
	tasklistTitle string

	mu         sync.Mutex
	tasklistID string
}

// AuthOptions builds client options from a refresh token or a credentials file
func AuthOptions(ctx context.Context, clientID, clientSecret, refreshToken, credentialsFile string) ([]option.ClientOption, error) {
	if refreshToken != "" {
		config := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{tasks.TasksScope},
		}
		token := &oauth2.Token{RefreshToken: refreshToken, TokenType: "Bearer", Expiry: time.Now()}
		return []option.ClientOption{option.WithTokenSource(config.TokenSource(ctx, token))}, nil
	}
	if credentialsFile != "" {
		return []option.ClientOption{
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(tasks.TasksScope),
		}, nil
	}
	return nil, errors.New("google tasks: no refresh token or credentials file configured")
}

// NewClient creates a Google Tasks client. An empty title uses the account's default list.
func NewClient(ctx context.Context, tasklistTitle string, opts ...option.ClientOption) (*Client, error) {
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Tasks service: %w", err)
	}
	return &Client{srv: srv, tasklistTitle: tasklistTitle}, nil
}

// TasklistID resolves the configured list by title, creating it when missing
func (c *Client) TasklistID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tasklistID != "" {
		return c.tasklistID, nil
	}
	if c.tasklistTitle == "" || c.tasklistTitle == DefaultTasklist {
		c.tasklistID = DefaultTasklist
		return c.tasklistID, nil
	}

	pageToken := ""
	for {
		call := c.srv.Tasklists.List().MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return "", wrapErr("list tasklists", err)
		}
		for _, item := range resp.Items {
			if item.Title == c.tasklistTitle {
				c.tasklistID = item.Id
				log.Printf("[GTasks] Found tasklist '%s': %s", c.tasklistTitle, c.tasklistID)
				return c.tasklistID, nil
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	created, err := c.srv.Tasklists.Insert(&tasks.TaskList{Title: c.tasklistTitle}).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("create tasklist", err)
	}
	c.tasklistID = created.Id
	log.Printf("[GTasks] Created tasklist '%s': %s", c.tasklistTitle, c.tasklistID)
	return c.tasklistID, nil
}

// Create inserts a new entry and returns its id
func (c *Client) Create(ctx context.Context, title, notes string, due time.Time, status domain.TaskStatus) (string, error) {
	listID, err := c.TasklistID(ctx)
	if err != nil {
		return "", err
	}

	body := &tasks.Task{
		Title:  title,
		Notes:  notes,
		Due:    FormatDue(due),
		Status: status.RemoteStatus(),
	}
	created, err := c.srv.Tasks.Insert(listID, body).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("create task", err)
	}
	return created.Id, nil
}

// Update patches only the fields that are set
func (c *Client) Update(ctx context.Context, id string, update domain.RemoteUpdate) error {
	listID, err := c.TasklistID(ctx)
	if err != nil {
		return err
	}

	patch := &tasks.Task{}
	if update.Title != nil {
		patch.Title = *update.Title
	}
	if update.Notes != nil {
		patch.Notes = *update.Notes
	}
	if update.Due != nil {
		patch.Due = FormatDue(*update.Due)
	}
	if update.Status != nil {
		patch.Status = update.Status.RemoteStatus()
		if patch.Status == domain.RemoteStatusNeedsAction {
			// Reopening requires clearing the completion timestamp
			patch.NullFields = append(patch.NullFields, "Completed")
		}
	}

	if _, err := c.srv.Tasks.Patch(listID, id, patch).Context(ctx).Do(); err != nil {
		return wrapErr("update task "+id, err)
	}
	return nil
}

// Delete removes an entry
func (c *Client) Delete(ctx context.Context, id string) error {
	listID, err := c.TasklistID(ctx)
	if err != nil {
		return err
	}
	if err := c.srv.Tasks.Delete(listID, id).Context(ctx).Do(); err != nil {
		return wrapErr("delete task "+id, err)
	}
	return nil
}

// Get fetches a single entry. Missing entries yield domain.ErrRemoteNotFound.
func (c *Client) Get(ctx context.Context, id string) (*domain.RemoteTask, error) {
	listID, err := c.TasklistID(ctx)
	if err != nil {
		return nil, err
	}
	item, err := c.srv.Tasks.Get(listID, id).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("get task "+id, err)
	}
	if item.Deleted {
		return nil, fmt.Errorf("get task %s: %w", id, domain.ErrRemoteNotFound)
	}
	return toRemote(item), nil
}

// List returns every entry on the list, following page tokens
func (c *Client) List(ctx context.Context, showCompleted bool) ([]*domain.RemoteTask, error) {
	listID, err := c.TasklistID(ctx)
	if err != nil {
		return nil, err
	}

	var out []*domain.RemoteTask
	pageToken := ""
	for {
		call := c.srv.Tasks.List(listID).
			ShowCompleted(showCompleted).
			ShowHidden(showCompleted).
			MaxResults(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, wrapErr("list tasks", err)
		}
		for _, item := range resp.Items {
			out = append(out, toRemote(item))
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}

func toRemote(item *tasks.Task) *domain.RemoteTask {
	rt := &domain.RemoteTask{
		ID:          item.Id,
		Title:       item.Title,
		Notes:       item.Notes,
		Status:      item.Status,
		DueDateOnly: true, // the API stores the date portion only
	}
	if due, err := ParseDue(item.Due); err == nil {
		rt.Due = &due
	} else if item.Due != "" {
		log.Printf("[GTasks] Ignoring unparseable due %q on task %s: %v", item.Due, item.Id, err)
	}
	return rt
}

// wrapErr maps 404/410 onto domain.ErrRemoteNotFound and keeps everything else intact
func wrapErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone {
			return fmt.Errorf("%s: %w", op, domain.ErrRemoteNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
