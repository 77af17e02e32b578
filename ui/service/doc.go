// Package service provides the shared logic behind the agentdesk UI.
//
// The service layer is HTTP-agnostic and used by both the JSON API and the
// SSR frontend handlers. It validates form input, calls the agentdesk
// Client, and turns failures into the messages operators see.
//
// # Usage
//
//	svc := service.New(client)
//
//	msg, err := svc.StartTask(ctx, "researcher", "Summarize the latest papers")
//	var formErr *service.FormError
//	if errors.As(err, &formErr) {
//	    // show formErr.Message
//	}
//
// # Design
//
// The service layer:
//   - Returns view models optimized for UI display
//   - Reports user-facing failures as *FormError with the exact message text
//   - Never panics on bad input; configuration load errors are reported on
//     the view so the page still renders
package service
