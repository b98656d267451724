package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/kiwari-pos/terminal/internal/cache"
	"github.com/kiwari-pos/terminal/internal/enum"
)

// ErrMenuItemNotFound is returned by MenuItem for an unknown id.
var ErrMenuItemNotFound = errors.New("menu item not found")

// Settings returns the business settings, cached under businessSettings.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	return cache.GetOrFetch(ctx, c.cache, enum.CacheKeySettings, func(ctx context.Context) (*Settings, error) {
		var s Settings
		if err := c.do(ctx, request{method: http.MethodGet, path: "/"}, &s); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

// SaveSettings writes the business settings and invalidates the cached copy.
func (c *Client) SaveSettings(ctx context.Context, s Settings) (*Settings, error) {
	var saved Settings
	if err := c.do(ctx, request{method: http.MethodPut, path: "/", body: s}, &saved); err != nil {
		return nil, err
	}
	if err := c.invalidate(ctx, enum.CacheKeySettings); err != nil {
		return nil, err
	}
	return &saved, nil
}

// MenuItems returns the menu, cached under menuItems.
func (c *Client) MenuItems(ctx context.Context) ([]MenuItem, error) {
	return cache.GetOrFetch(ctx, c.cache, enum.CacheKeyMenuItems, func(ctx context.Context) ([]MenuItem, error) {
		var items []MenuItem
		if err := c.do(ctx, request{method: http.MethodGet, path: "/menu-items"}, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []MenuItem{}
		}
		return items, nil
	})
}

// MenuItem looks up one item in the (cached) menu.
func (c *Client) MenuItem(ctx context.Context, id ID) (*MenuItem, error) {
	items, err := c.MenuItems(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, ErrMenuItemNotFound
}

// CreateMenuItem adds a menu item and invalidates the cached menu.
func (c *Client) CreateMenuItem(ctx context.Context, in MenuItemInput) (*MenuItem, error) {
	var item MenuItem
	if err := c.do(ctx, request{method: http.MethodPost, path: "/menu-items", body: in}, &item); err != nil {
		return nil, err
	}
	if err := c.invalidate(ctx, enum.CacheKeyMenuItems); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateMenuItem changes a menu item and invalidates the cached menu.
func (c *Client) UpdateMenuItem(ctx context.Context, id ID, in MenuItemInput) (*MenuItem, error) {
	var item MenuItem
	path := "/menu-items/" + url.PathEscape(id.String())
	if err := c.do(ctx, request{method: http.MethodPut, path: path, body: in}, &item); err != nil {
		return nil, err
	}
	if err := c.invalidate(ctx, enum.CacheKeyMenuItems); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteMenuItem removes a menu item and invalidates the cached menu.
func (c *Client) DeleteMenuItem(ctx context.Context, id ID) error {
	path := "/menu-items/" + url.PathEscape(id.String())
	if err := c.do(ctx, request{method: http.MethodDelete, path: path}, nil); err != nil {
		return err
	}
	return c.invalidate(ctx, enum.CacheKeyMenuItems)
}
