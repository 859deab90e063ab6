package platforms

import "github.com/ternarybob/scribo/internal/models"

// Built-in platform definitions. Selector chains and URL patterns here are
// heuristic: platforms change their pages without notice, and these values
// are expected to need maintenance. Overrides can be loaded from TOML files
// without rebuilding (see loader.go).

func bloggerDefinition() *Definition {
	return &Definition{
		Platform:     models.PlatformBlogger,
		CookieDomain: ".blogger.com",
		LoginURL:     "https://accounts.google.com/ServiceLogin?service=blogger&continue=https://www.blogger.com/",
		PostLoginURL: "https://www.blogger.com/",
		UsernameField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Email or phone"]`},
			{Kind: SelectorAttribute, Query: `input[type="email"][name="identifier"]`},
			{Kind: SelectorStructural, Query: `input[type="email"]`},
		},
		UsernameNext: SelectorChain{
			{Kind: SelectorSemantic, Query: `#identifierNext button`},
			{Kind: SelectorStructural, Query: `div[role="button"]`},
		},
		PasswordField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Enter your password"]`},
			{Kind: SelectorAttribute, Query: `input[type="password"][name="Passwd"]`},
			{Kind: SelectorStructural, Query: `input[type="password"]`},
		},
		LoginSubmit: SelectorChain{
			{Kind: SelectorSemantic, Query: `#passwordNext button`},
			{Kind: SelectorStructural, Query: `div[role="button"]`},
		},
		LoginURLPatterns: []string{"accounts.google.com", "/signin", "/challenge"},
		CaptchaMarkers: []string{
			`iframe[src*="recaptcha"]`,
			`div.g-recaptcha`,
			`img#captchaimg`,
		},
		SecondFactorMarkers: []string{
			`input[name="idvPin"]`,
			`input#totpPin`,
			`div[data-challengetype]`,
		},
		LoginErrorMarkers: []string{
			`div[jsname="B34EJ"] span`,
			`span[jsslot] div[aria-live="assertive"]`,
		},
		MissingTargetMarkers: []string{
			`a[href*="/blog/create"]`,
		},
		ComposeURL: "https://www.blogger.com/blog/post/edit",
		TitleField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Title"]`},
			{Kind: SelectorAttribute, Query: `input[placeholder="Title"]`},
			{Kind: SelectorStructural, Query: `header input[type="text"]`},
		},
		BodyField: SelectorChain{
			{Kind: SelectorSemantic, Query: `div[role="textbox"][aria-label*="ompose"]`},
			{Kind: SelectorAttribute, Query: `div[contenteditable="true"][g_editable="true"]`},
			{Kind: SelectorStructural, Query: `div[contenteditable="true"]`},
		},
		PublishButton: SelectorChain{
			{Kind: SelectorSemantic, Query: `button[aria-label="Publish"]`},
			{Kind: SelectorAttribute, Query: `div[data-tooltip="Publish"]`},
			{Kind: SelectorStructural, Query: `header button:last-of-type`},
		},
		ConfirmButton: SelectorChain{
			{Kind: SelectorSemantic, Query: `div[role="dialog"] button[aria-label="Confirm"]`},
			{Kind: SelectorStructural, Query: `div[role="dialog"] button:last-of-type`},
		},
		RichText:            true,
		ComposeURLPatterns:  []string{"/blog/post/edit", "/blog/posts/new"},
		PostURLPattern:      `blogger\.com/blog/post/edit/\d+/(\d+)`,
		ListingURL:          "https://www.blogger.com/blog/posts",
		ListingLinkSelector: `a[href*=".blogspot.com/"]`,
		DisplayNameSelector: `a[aria-label*="Google Account"]`,
	}
}

func tumblrDefinition() *Definition {
	return &Definition{
		Platform:     models.PlatformTumblr,
		CookieDomain: ".tumblr.com",
		LoginURL:     "https://www.tumblr.com/login",
		PostLoginURL: "https://www.tumblr.com/dashboard",
		UsernameField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Email"]`},
			{Kind: SelectorAttribute, Query: `input[name="email"]`},
			{Kind: SelectorStructural, Query: `form input[type="email"]`},
		},
		PasswordField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Password"]`},
			{Kind: SelectorAttribute, Query: `input[name="password"]`},
			{Kind: SelectorStructural, Query: `form input[type="password"]`},
		},
		LoginSubmit: SelectorChain{
			{Kind: SelectorSemantic, Query: `button[aria-label="Log in"]`},
			{Kind: SelectorAttribute, Query: `button[type="submit"]`},
			{Kind: SelectorStructural, Query: `form button:last-of-type`},
		},
		LoginURLPatterns: []string{"/login", "/verify", "/challenge"},
		CaptchaMarkers: []string{
			`iframe[src*="recaptcha"]`,
			`iframe[src*="hcaptcha"]`,
			`div#challenge-stage`,
		},
		SecondFactorMarkers: []string{
			`input[name="tfa_response_field"]`,
			`input[aria-label*="authentication code"]`,
		},
		LoginErrorMarkers: []string{
			`form [role="alert"]`,
			`p.error`,
		},
		ComposeURL: "https://www.tumblr.com/new/text",
		TitleField: SelectorChain{
			{Kind: SelectorSemantic, Query: `[role="textbox"][aria-label="Title"]`},
			{Kind: SelectorAttribute, Query: `textarea[placeholder="Title"]`},
			{Kind: SelectorStructural, Query: `form [contenteditable="true"]:first-of-type`},
		},
		BodyField: SelectorChain{
			{Kind: SelectorSemantic, Query: `[role="textbox"][aria-label="Text block"]`},
			{Kind: SelectorAttribute, Query: `div[data-rte] [contenteditable="true"]`},
			{Kind: SelectorStructural, Query: `form [contenteditable="true"]:last-of-type`},
		},
		PublishButton: SelectorChain{
			{Kind: SelectorSemantic, Query: `button[aria-label="Post now"]`},
			{Kind: SelectorAttribute, Query: `button[data-js-post-button]`},
			{Kind: SelectorStructural, Query: `form button[type="submit"]`},
		},
		RichText:            true,
		ComposeURLPatterns:  []string{"/new/", "/edit/"},
		PostURLPattern:      `tumblr\.com/[^/]+/(\d+)`,
		ListingURL:          "https://www.tumblr.com/blog",
		ListingLinkSelector: `article a[href*="/post/"]`,
		DisplayNameSelector: `button[aria-label="Account"] span`,
	}
}

func livejournalDefinition() *Definition {
	return &Definition{
		Platform:     models.PlatformLiveJournal,
		CookieDomain: ".livejournal.com",
		LoginURL:     "https://www.livejournal.com/login.bml",
		PostLoginURL: "https://www.livejournal.com/",
		UsernameField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Username"]`},
			{Kind: SelectorAttribute, Query: `input[name="user"]`},
			{Kind: SelectorStructural, Query: `form.lj-form input[type="text"]`},
		},
		PasswordField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Password"]`},
			{Kind: SelectorAttribute, Query: `input[name="password"]`},
			{Kind: SelectorStructural, Query: `form.lj-form input[type="password"]`},
		},
		LoginSubmit: SelectorChain{
			{Kind: SelectorAttribute, Query: `button[name="action:login"]`},
			{Kind: SelectorStructural, Query: `form.lj-form button[type="submit"]`},
		},
		LoginURLPatterns: []string{"login.bml", "/identity/"},
		CaptchaMarkers: []string{
			`img[src*="captcha"]`,
			`input[name="captcha_answer"]`,
		},
		SecondFactorMarkers: []string{
			`input[name="otp"]`,
		},
		LoginErrorMarkers: []string{
			`.b-dialog-error`,
			`div.error-msg`,
		},
		ComposeURL: "https://www.livejournal.com/update.bml",
		TitleField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Subject"]`},
			{Kind: SelectorAttribute, Query: `input[name="subject"]`},
			{Kind: SelectorStructural, Query: `form#updateForm input[type="text"]`},
		},
		BodyField: SelectorChain{
			{Kind: SelectorSemantic, Query: `[role="textbox"][aria-label="Post"]`},
			{Kind: SelectorAttribute, Query: `textarea[name="event"]`},
			{Kind: SelectorStructural, Query: `form#updateForm textarea`},
		},
		PublishButton: SelectorChain{
			{Kind: SelectorAttribute, Query: `button[name="action:update"]`},
			{Kind: SelectorStructural, Query: `form#updateForm button[type="submit"]`},
		},
		RichText:            false,
		ComposeURLPatterns:  []string{"update.bml", "editjournal.bml"},
		PostURLPattern:      `livejournal\.com/(\d+)\.html`,
		ListingURL:          "https://www.livejournal.com/editjournal.bml",
		ListingLinkSelector: `a[href$=".html"]`,
		DisplayNameSelector: `a.i-ljuser-username`,
	}
}

func typepadDefinition() *Definition {
	return &Definition{
		Platform:     models.PlatformTypepad,
		CookieDomain: ".typepad.com",
		LoginURL:     "https://www.typepad.com/secure/services/signin",
		PostLoginURL: "https://www.typepad.com/site/blogs",
		UsernameField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Email Address"]`},
			{Kind: SelectorAttribute, Query: `input[name="username"]`},
			{Kind: SelectorStructural, Query: `form input[type="text"]`},
		},
		PasswordField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Password"]`},
			{Kind: SelectorAttribute, Query: `input[name="password"]`},
			{Kind: SelectorStructural, Query: `form input[type="password"]`},
		},
		LoginSubmit: SelectorChain{
			{Kind: SelectorAttribute, Query: `input[type="submit"][value="Sign In"]`},
			{Kind: SelectorStructural, Query: `form input[type="submit"]`},
		},
		LoginURLPatterns: []string{"/secure/services/signin", "/secure/verify"},
		CaptchaMarkers: []string{
			`iframe[src*="recaptcha"]`,
		},
		SecondFactorMarkers: []string{
			`input[name="verification_code"]`,
		},
		LoginErrorMarkers: []string{
			`div.error-message`,
			`p.message-error`,
		},
		MissingTargetMarkers: []string{
			`a[href*="/site/blogs/new"]`,
		},
		ComposeURL: "https://www.typepad.com/site/compose",
		TitleField: SelectorChain{
			{Kind: SelectorSemantic, Query: `input[aria-label="Title"]`},
			{Kind: SelectorAttribute, Query: `input[name="entry_title"]`},
			{Kind: SelectorStructural, Query: `form#compose input[type="text"]`},
		},
		BodyField: SelectorChain{
			{Kind: SelectorSemantic, Query: `[role="textbox"][aria-label="Body"]`},
			{Kind: SelectorAttribute, Query: `div#entry-body[contenteditable="true"]`},
			{Kind: SelectorStructural, Query: `form#compose [contenteditable="true"]`},
		},
		PublishButton: SelectorChain{
			{Kind: SelectorSemantic, Query: `button[aria-label="Publish"]`},
			{Kind: SelectorAttribute, Query: `button#publish-button`},
			{Kind: SelectorStructural, Query: `form#compose button[type="submit"]`},
		},
		ConfirmButton: SelectorChain{
			{Kind: SelectorStructural, Query: `div.modal-footer button.primary`},
		},
		RichText:            true,
		ComposeURLPatterns:  []string{"/site/compose"},
		PostURLPattern:      `typepad\.com/[^/]+/(\d{4}/\d{2}/[^/?#]+)\.html`,
		ListingURL:          "https://www.typepad.com/site/blogs",
		ListingLinkSelector: `table.entries a[href*=".html"]`,
		DisplayNameSelector: `span.user-display-name`,
	}
}
