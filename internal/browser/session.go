package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/hanulsoft/blogpilot/internal/logger"
	"github.com/hanulsoft/blogpilot/internal/types"
)

// Naver endpoints and timings
const (
	loginURL    = "https://nid.naver.com/nidlogin.login"
	blogHomeURL = "https://blog.naver.com"

	// loginWait bounds the polled wait for the post-login marker
	loginWait = 15 * time.Second
	// submitWait bounds the polled wait for the publish success indicator
	submitWait = 20 * time.Second
	// pollInterval is the DOM readiness polling period
	pollInterval = 500 * time.Millisecond
	// maxTags is the platform's tag limit per post
	maxTags = 10

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Session is one scoped browser automation session. It is acquired at login
// and must be released with Close on every exit path.
type Session struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	state       SessionState
	blogID      string
	closed      bool
}

// NewSession launches a controlled browser
func NewSession(parent context.Context, headless bool) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser now so a broken Chrome install fails here, not at login
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		state:       StateUnauthenticated,
	}, nil
}

// State returns the current session state
func (s *Session) State() SessionState { return s.state }

// BlogID returns the blog identifier discovered after login
func (s *Session) BlogID() string { return s.blogID }

// Close releases the browser. Safe to call multiple times and from any state.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancelCtx()
	s.cancelAlloc()
	logger.Debug("browser session released")
}

// Login drives the Naver login form and waits for the session cookies.
// CAPTCHA/2FA challenges and rejected credentials are terminal; they are
// surfaced, never retried.
func (s *Session) Login(ctx context.Context, creds types.Credentials) error {
	if s.state != StateUnauthenticated {
		return transitionError("login", s.state)
	}
	s.state = StateLoggingIn

	err := chromedp.Run(s.ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible("#id", chromedp.ByID),
		setFieldValue("#id", creds.Username),
		setFieldValue("#pw", creds.Secret),
		chromedp.Click(`#log\.login`, chromedp.NodeVisible),
	)
	if err != nil {
		s.state = StateLoginFailed
		return types.NewAuthFailure("로그인 페이지를 불러올 수 없습니다", err)
	}

	if err := s.waitForLogin(ctx); err != nil {
		s.state = StateLoginFailed
		return err
	}

	s.state = StateAuthenticated
	s.discoverBlogID()
	logger.InfoWithFields("naver login succeeded", map[string]interface{}{"blog_id": s.blogID})
	return nil
}

// waitForLogin polls for the logged-in marker within the bounded wait
func (s *Session) waitForLogin(ctx context.Context) error {
	deadline := time.Now().Add(loginWait)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		var location, pageText string
		err := chromedp.Run(s.ctx,
			chromedp.Location(&location),
			chromedp.Evaluate(`document.body ? document.body.innerText.slice(0, 4000) : ""`, &pageText),
		)
		if err != nil {
			return types.NewAuthFailure("로그인 상태를 확인할 수 없습니다", err)
		}

		if containsChallenge(pageText) {
			return types.NewAuthFailure("보안 인증(캡차/2단계 인증)이 감지되었습니다. 브라우저에서 직접 로그인해주세요", nil)
		}

		if !strings.Contains(location, "nidlogin") && s.hasSessionCookie() {
			return nil
		}

		time.Sleep(pollInterval)
	}
	return types.NewAuthFailure("로그인 시간이 초과되었습니다. 아이디와 비밀번호를 확인해주세요", nil)
}

// containsChallenge detects CAPTCHA or two-factor prompts in the page text
func containsChallenge(pageText string) bool {
	return strings.Contains(pageText, "캡차") ||
		strings.Contains(pageText, "자동입력 방지") ||
		strings.Contains(pageText, "2단계 인증")
}

// hasSessionCookie checks for the Naver auth cookies
func (s *Session) hasSessionCookie() bool {
	var found bool
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			if c.Name == "NID_AUT" || c.Name == "NID_SES" {
				found = true
				return nil
			}
		}
		return nil
	}))
	return err == nil && found
}

// discoverBlogID extracts the blog id from the blog home redirect
func (s *Session) discoverBlogID() {
	var location string
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(blogHomeURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Location(&location),
	)
	if err != nil {
		logger.Warnf("failed to discover blog id: %v", err)
		return
	}
	s.blogID = blogIDFromURL(location)
}

// blogIDFromURL parses the blog id out of a blog.naver.com URL
func blogIDFromURL(location string) string {
	_, after, found := strings.Cut(location, "blog.naver.com/")
	if !found {
		return ""
	}
	id := after
	if i := strings.IndexAny(id, "/?#"); i >= 0 {
		id = id[:i]
	}
	return id
}

// Compose navigates to the editor and injects the draft. The injected title
// is read back and compared before the session is considered composed; a
// mismatch or editor timeout is retryable.
func (s *Session) Compose(ctx context.Context, draft *types.DraftPost) error {
	if s.state != StateAuthenticated {
		return transitionError("compose", s.state)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	writeURL := fmt.Sprintf("%s/%s/postwrite", blogHomeURL, s.blogID)

	err := chromedp.Run(s.ctx,
		chromedp.Navigate(writeURL),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return types.NewTransient("글쓰기 페이지를 불러올 수 없습니다", err)
	}

	if err := s.injectTitle(draft.Title); err != nil {
		return err
	}
	if draft.Image != nil {
		if err := s.uploadImage(draft.Image); err != nil {
			// an image failure should not lose the whole post
			logger.Warnf("image upload failed, continuing without image: %v", err)
		}
	}
	if err := s.injectBody(draft.Body); err != nil {
		return err
	}
	s.injectTags(draft.Tags)

	// consistency check: the editor must reflect the injected title
	rendered, err := s.readTitle()
	if err != nil || !strings.Contains(rendered, draft.Title) {
		return types.NewTransient("에디터에 제목이 반영되지 않았습니다", err)
	}

	s.state = StateComposing
	logger.Infof("draft composed: %s", draft.Title)
	return nil
}

// editorDoc resolves the SmartEditor document, stepping into the mainFrame
// iframe when present
const editorDoc = `(() => {
	const frame = document.querySelector('#mainFrame');
	return frame ? (frame.contentDocument || frame.contentWindow.document) : document;
})()`

func (s *Session) injectTitle(title string) error {
	js := fmt.Sprintf(`(() => {
		const doc = %s;
		const el = doc.querySelector('.se-title-text, textarea.se-textarea');
		if (!el) return false;
		if ('value' in el) { el.value = %q; } else { el.innerText = %q; }
		el.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	})()`, editorDoc, title, title)

	var ok bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &ok)); err != nil || !ok {
		return types.NewTransient("제목 입력란을 찾을 수 없습니다", err)
	}
	return nil
}

func (s *Session) injectBody(body string) error {
	js := fmt.Sprintf(`(() => {
		const doc = %s;
		const el = doc.querySelector('.se-content, .se-component-content, .se-text-paragraph');
		if (!el) return false;
		el.innerText = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	})()`, editorDoc, body)

	var ok bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &ok)); err != nil || !ok {
		return types.NewTransient("본문 입력란을 찾을 수 없습니다", err)
	}
	return nil
}

// injectTags enters tags one by one; tag failures are tolerated
func (s *Session) injectTags(tags []string) {
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	for _, tag := range tags {
		js := fmt.Sprintf(`(() => {
			const doc = %s;
			const el = doc.querySelector('.post_tag input, input[placeholder*="태그"]');
			if (!el) return false;
			el.value = %q;
			el.dispatchEvent(new Event('input', {bubbles: true}));
			el.dispatchEvent(new KeyboardEvent('keydown', {key: 'Enter', bubbles: true}));
			return true;
		})()`, editorDoc, tag)

		var ok bool
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &ok)); err != nil || !ok {
			logger.Debugf("tag input skipped for %q", tag)
			return
		}
	}
}

func (s *Session) readTitle() (string, error) {
	js := fmt.Sprintf(`(() => {
		const doc = %s;
		const el = doc.querySelector('.se-title-text, textarea.se-textarea');
		if (!el) return "";
		return 'value' in el ? el.value : el.innerText;
	})()`, editorDoc)

	var title string
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(js, &title)); err != nil {
		return "", err
	}
	return title, nil
}

// uploadImage writes the blob to a temp file and feeds it to the editor's
// file input
func (s *Session) uploadImage(blob *types.ImageBlob) error {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("blogpilot-%d.%s", time.Now().UnixNano(), blob.Format))
	if err := os.WriteFile(path, blob.Data, 0o600); err != nil {
		return fmt.Errorf("failed to stage image: %w", err)
	}
	defer os.Remove(path)

	return chromedp.Run(s.ctx,
		chromedp.Click(`[data-name="image"]`, chromedp.NodeVisible),
		chromedp.SetUploadFiles(`input[type="file"]`, []string{path}, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
}

// Submit triggers publish and waits for the success indicator. A platform
// error banner is terminal; a missing indicator within the bounded wait is
// retryable.
func (s *Session) Submit(ctx context.Context) (*types.PublishResult, error) {
	if s.state != StateComposing {
		return nil, transitionError("submit", s.state)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.state = StateSubmitting

	clickJS := fmt.Sprintf(`(() => {
		const doc = %s;
		const btn = doc.querySelector('.publish_btn, [data-name="publish"]') ||
			Array.from(doc.querySelectorAll('button')).find(b => b.innerText.includes('발행'));
		if (!btn) return false;
		btn.click();
		const confirm = doc.querySelector('.confirm_btn');
		if (confirm) confirm.click();
		return true;
	})()`, editorDoc)

	var clicked bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(clickJS, &clicked)); err != nil || !clicked {
		s.state = StateComposing
		return nil, types.NewTransient("발행 버튼을 찾을 수 없습니다", err)
	}

	result, err := s.waitForPublish(ctx)
	if err != nil {
		if types.IsRetryable(err) {
			// a slow page may still succeed on retry; re-arm compose state
			s.state = StateComposing
		} else {
			s.state = StateSubmitFailed
		}
		return nil, err
	}

	s.state = StatePublished
	return result, nil
}

// waitForPublish polls for the post-URL redirect or an error banner
func (s *Session) waitForPublish(ctx context.Context) (*types.PublishResult, error) {
	deadline := time.Now().Add(submitWait)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var location, pageText string
		err := chromedp.Run(s.ctx,
			chromedp.Location(&location),
			chromedp.Evaluate(`document.body ? document.body.innerText.slice(0, 4000) : ""`, &pageText),
		)
		if err != nil {
			return nil, types.NewTransient("발행 상태를 확인할 수 없습니다", err)
		}

		if kind, terminal := detectPlatformError(pageText); terminal {
			return nil, kind
		}

		if isPostURL(location) {
			return &types.PublishResult{Success: true, PostURL: location}, nil
		}

		time.Sleep(pollInterval)
	}
	return nil, types.NewTransient("발행 확인 시간이 초과되었습니다", nil)
}

// detectPlatformError looks for explicit platform rejections in the page.
// These are terminal, never retried.
func detectPlatformError(pageText string) (error, bool) {
	switch {
	case strings.Contains(pageText, "동일한 글"), strings.Contains(pageText, "중복"):
		return types.NewContentPolicy("이미 등록된 글과 중복되어 발행이 거부되었습니다", nil), true
	case strings.Contains(pageText, "스팸"), strings.Contains(pageText, "제한된 글"):
		return types.NewContentPolicy("게시물이 스팸으로 분류되어 발행이 거부되었습니다", nil), true
	default:
		return nil, false
	}
}

// isPostURL reports whether location looks like a published post URL
func isPostURL(location string) bool {
	if !strings.Contains(location, "blog.naver.com") {
		return false
	}
	if strings.Contains(location, "postwrite") {
		return false
	}
	tail := location[strings.LastIndex(location, "/")+1:]
	if i := strings.IndexAny(tail, "?#"); i >= 0 {
		tail = tail[:i]
	}
	if tail == "" {
		return false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// setFieldValue injects a value into a form field and fires an input event,
// mirroring a paste rather than keystrokes
func setFieldValue(selector, value string) chromedp.Action {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.focus();
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		return true;
	})()`, selector, value)
	var ok bool
	return chromedp.Evaluate(js, &ok)
}
