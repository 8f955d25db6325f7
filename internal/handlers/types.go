package handlers

// CreateShortURLRequest is the request for creating a short URL. The body is
// read raw and validated by shortener.ParseCreateBody so a missing or non-string
// url is a 400 rather than a schema error.
type CreateShortURLRequest struct {
	RawBody []byte
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Body struct {
		ShortURL string `doc:"The full short URL" example:"https://api.example.com/urls-node/Xk3pQ9mZt" json:"shortUrl"`
	}
}

// RedirectRequest is the request for resolving a short URL.
type RedirectRequest struct {
	ID string `doc:"The short identifier" example:"Xk3pQ9mZt" path:"id"`
}

// RedirectResponse redirects to the original URL and carries no body.
type RedirectResponse struct {
	Status   int
	Location string `doc:"The original URL" header:"Location"`
}
