// Package httpclient is a small HTTP client for pulling availability feeds.
//
// Requests go through an optional circuit breaker and retry policy from
// package resilience. Non-2xx answers and network failures are returned as
// *errors.AppError, retryable for timeouts, throttling and server errors.
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "velib",
//	    Timeout: 5 * time.Second,
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	var feed StationStatus
//	err = client.GetJSON(ctx, feedURL, &feed)
package httpclient
