package gtkshell

import (
	"log/slog"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/diamondburned/gotk4/pkg/pango"

	"github.com/jmylchreest/chatpanel/internal/config"
)

// URLStore persists the last URL shown in the panel. *store.Store
// implements it.
type URLStore interface {
	SaveLastURL(u string) error
}

// Content is the panel body: a site switcher header, the current site and
// buttons to open it or sign in.
type Content struct {
	root    *gtk.Box
	sites   *gtk.Box
	status  *adw.StatusPage
	urlLbl  *gtk.Label
	logger  *slog.Logger
	store   URLStore
	popups  *AuthPopups
	buttons map[string]*gtk.Button

	cfg     []config.SiteConfig
	current string
	onHide  func()
}

// NewContent builds the panel body showing start.
func NewContent(sites []config.SiteConfig, start string, store URLStore, popups *AuthPopups, logger *slog.Logger) *Content {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Content{
		store:   store,
		popups:  popups,
		logger:  logger,
		buttons: make(map[string]*gtk.Button),
	}

	c.sites = gtk.NewBox(gtk.OrientationHorizontal, 4)
	c.sites.SetHExpand(true)

	hide := gtk.NewButtonFromIconName("window-close-symbolic")
	hide.SetTooltipText("Hide panel")
	hide.AddCSSClass("flat")
	hide.ConnectClicked(func() {
		if c.onHide != nil {
			c.onHide()
		}
	})

	header := gtk.NewBox(gtk.OrientationHorizontal, 6)
	header.AddCSSClass("chatpanel-header")
	header.Append(c.sites)
	header.Append(hide)

	open := gtk.NewButtonWithLabel("Open")
	open.AddCSSClass("suggested-action")
	open.AddCSSClass("pill")
	open.ConnectClicked(c.openCurrent)

	signIn := gtk.NewButtonWithLabel("Sign in")
	signIn.AddCSSClass("pill")
	signIn.ConnectClicked(c.signIn)

	actions := gtk.NewBox(gtk.OrientationHorizontal, 12)
	actions.SetHAlign(gtk.AlignCenter)
	actions.Append(signIn)
	actions.Append(open)

	c.status = adw.NewStatusPage()
	c.status.SetIconName("user-available-symbolic")
	c.status.SetVExpand(true)
	c.status.SetChild(actions)

	c.urlLbl = gtk.NewLabel("")
	c.urlLbl.AddCSSClass("chatpanel-url")
	c.urlLbl.SetEllipsize(pango.EllipsizeMiddle)
	c.urlLbl.SetSelectable(true)

	c.root = gtk.NewBox(gtk.OrientationVertical, 0)
	c.root.SetHExpand(true)
	c.root.Append(header)
	c.root.Append(c.status)
	c.root.Append(c.urlLbl)

	c.SetSites(sites)
	c.Navigate(start)
	return c
}

// Widget returns the root widget for packing into the panel.
func (c *Content) Widget() gtk.Widgetter {
	return c.root
}

// SetHideHandler sets what the header's close button does.
func (c *Content) SetHideHandler(fn func()) {
	c.onHide = fn
}

// Current returns the URL being shown.
func (c *Content) Current() string {
	return c.current
}

// SetSites rebuilds the site switcher.
func (c *Content) SetSites(sites []config.SiteConfig) {
	for child := c.sites.FirstChild(); child != nil; child = c.sites.FirstChild() {
		c.sites.Remove(child)
	}
	clear(c.buttons)
	c.cfg = sites

	for _, s := range sites {
		btn := gtk.NewButtonWithLabel(s.Name)
		btn.AddCSSClass("flat")
		btn.AddCSSClass("chatpanel-site-button")
		btn.SetTooltipText(s.URL)
		btn.ConnectClicked(func() { c.Navigate(s.URL) })
		c.sites.Append(btn)
		c.buttons[s.URL] = btn
	}
	c.markActive()
}

// Navigate switches the panel to u and remembers it for the next start.
func (c *Content) Navigate(u string) {
	if u == "" {
		return
	}
	c.current = u
	c.urlLbl.SetText(u)

	site, ok := c.site(u)
	if ok {
		c.status.SetTitle(site.Name)
	} else {
		c.status.SetTitle(u)
	}
	c.status.SetDescription(u)
	c.markActive()

	if c.store != nil {
		if err := c.store.SaveLastURL(u); err != nil {
			c.logger.Warn("failed to save last URL", "url", u, "error", err)
		}
	}
}

func (c *Content) markActive() {
	for u, btn := range c.buttons {
		if u == c.current {
			btn.AddCSSClass("active")
		} else {
			btn.RemoveCSSClass("active")
		}
	}
}

func (c *Content) site(u string) (config.SiteConfig, bool) {
	cfg := config.Config{Content: config.ContentConfig{Sites: c.cfg}}
	return cfg.SiteFor(u)
}

func (c *Content) openCurrent() {
	if c.current == "" {
		return
	}
	gtk.ShowURI(nil, c.current, gdk.CURRENT_TIME)
}

func (c *Content) signIn() {
	if c.popups == nil || c.current == "" {
		return
	}
	name, target := c.current, c.current
	if site, ok := c.site(c.current); ok {
		name = site.Name
		if site.SignInURL != "" {
			target = site.SignInURL
		}
	}
	c.popups.Open(name, target)
}
