/*
Package dreamsdk is a Go client for the Dreamscape event planning API.

A Client covers the public endpoints and signs users in. Everything that
needs a session goes through the returned Session:

	client := dreamsdk.NewClient("https://dreamscape.example.com")

	session, err := client.SignIn(ctx, "ada@example.com", "correct horse")
	if err != nil {
		return err
	}

	event, err := session.CreateEvent(ctx, dreamsdk.CreateEventRequest{
		Title:    "Team retro",
		Datetime: time.Now().Add(24 * time.Hour),
	})

	event, err = session.RSVP(ctx, event.ID, dreamsdk.RSVPMaybe)

Failed calls return an *APIError carrying the HTTP status, the error code
(unauthorized, forbidden, validation_error, not_found, duplicate_email,
internal_error) and, for validation errors, every problem found.
*/
package dreamsdk
