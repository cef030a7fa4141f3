// Package actions routes named user requests to their handlers.
//
// An Action names an operation and carries its input. The Dispatcher looks
// up the handler registered under that name and wraps the outcome in a
// Result, so callers always get a reply rather than an error:
//
//	d, _ := actions.NewDispatcher()
//	res := d.Handle(ctx, actions.Action{Name: actions.SetWorkspace, Input: "~/papers"})
//	if !res.Success {
//	    log.Println(res.Error)
//	}
//
// set_workspace is built in. The session binds process_document, search
// and ask.
package actions
