package auth

const (
	HomeURL  = "https://x.com/home"
	LoginURL = "https://x.com/i/flow/login"
)

var (
	// Any of these visible means the session is logged in
	LoggedInIndicators = []string{
		`[data-testid="SideNav_AccountSwitcher_Button"]`,
		`[data-testid="AppTabBar_Home_Link"]`,
		`[aria-label="Home timeline"]`,
	}

	UsernameInputs = []string{
		`input[autocomplete="username"]`,
		`input[name="text"]`,
		`input[data-testid="ocfEnterTextTextInput"]`,
	}

	NextButton = []string{`text=Next`}

	// Unusual-activity check asking for the phone number or handle
	PhonePrompts = []string{
		`input[name="text"]`,
		`input[placeholder*="phone"]`,
		`text="Enter your phone number"`,
	}

	PasswordInputs = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`input[autocomplete="current-password"]`,
	}

	LoginButton = []string{`text=Log in`}

	TwoFactorPrompts = []string{
		`input[data-testid="ocfEnterTextTextInput"]`,
		`input[placeholder*="verification"]`,
		`input[placeholder*="code"]`,
		`text="Enter your verification code"`,
		`text="We sent you a code"`,
		`text="Check your authenticator app"`,
	}
)
