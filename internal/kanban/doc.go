// Package kanban provides typed access to the Kanban board API: authentication, tasks,
// comments, replies and users.
//
// Every call goes through an apiclient.Client, so bearer injection and the
// refresh-and-retry protocol apply uniformly. Payloads are validated before any I/O.
package kanban
