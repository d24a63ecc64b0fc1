package graph

// tokenResponse is the OAuth2 client-credentials grant response.
type tokenResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	AccessToken string `json:"access_token"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// SubscribedSKU is one tenant license subscription.
type SubscribedSKU struct {
	SKUID         string `json:"skuId"`
	SKUPartNumber string `json:"skuPartNumber"`
	PrepaidUnits  struct {
		Enabled   int `json:"enabled"`
		Suspended int `json:"suspended"`
		Warning   int `json:"warning"`
	} `json:"prepaidUnits"`
	ConsumedUnits int `json:"consumedUnits"`
}

type subscribedSKUsResponse struct {
	Value []SubscribedSKU `json:"value"`
}

// User is one directory user with sign-in activity.
type User struct {
	UserPrincipalName string `json:"userPrincipalName"`
	SignInActivity    *struct {
		LastSignInDateTime string `json:"lastSignInDateTime"`
	} `json:"signInActivity"`
}

// UserPage is one page of the users listing plus the link to the next page.
type UserPage struct {
	Users    []User
	NextLink string
}

type usersResponse struct {
	Value    []User `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// LicenseDetail is one license assigned to a user.
type LicenseDetail struct {
	SKUID         string `json:"skuId"`
	SKUPartNumber string `json:"skuPartNumber"`
}

type licenseDetailsResponse struct {
	Value []LicenseDetail `json:"value"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
