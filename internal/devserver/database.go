package devserver

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/florianilch/kanbanctl/internal/kanban"
)

// collection is an id-keyed table with sequential ids starting at 1.
type collection[T any] struct {
	next  int64
	items map[int64]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[int64]T)}
}

func (c *collection[T]) insert(build func(id int64) T) T {
	c.next++
	item := build(c.next)
	c.items[c.next] = item
	return item
}

func (c *collection[T]) get(id int64) (T, bool) {
	item, ok := c.items[id]
	return item, ok
}

func (c *collection[T]) put(id int64, item T) {
	c.items[id] = item
}

func (c *collection[T]) remove(id int64) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	return true
}

// list returns matching items ordered by id.
func (c *collection[T]) list(keep func(T) bool) []T {
	ids := make([]int64, 0, len(c.items))
	for id, item := range c.items {
		if keep == nil || keep(item) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	items := make([]T, 0, len(ids))
	for _, id := range ids {
		items = append(items, c.items[id])
	}
	return items
}

type userRecord struct {
	kanban.User
	passwordHash []byte
	image        []byte
	imageType    string
}

// database holds all board data behind one lock.
type database struct {
	mu       sync.RWMutex
	users    *collection[*userRecord]
	tasks    *collection[kanban.Task]
	comments *collection[kanban.Comment]
	replies  *collection[kanban.Reply]
}

func newDatabase() *database {
	return &database{
		users:    newCollection[*userRecord](),
		tasks:    newCollection[kanban.Task](),
		comments: newCollection[kanban.Comment](),
		replies:  newCollection[kanban.Reply](),
	}
}

// user returns a copy of the user's public fields.
func (db *database) user(id int64) (kanban.User, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	record, ok := db.users.get(id)
	if !ok {
		return kanban.User{}, false
	}
	return record.User, true
}

// findUserByLogin matches username first, then email (case-insensitive).
func (db *database) findUserByLogin(usernameOrEmail string) (*userRecord, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, record := range db.users.list(nil) {
		if record.Username == usernameOrEmail {
			return record, true
		}
	}
	for _, record := range db.users.list(nil) {
		if strings.EqualFold(string(record.Email), usernameOrEmail) {
			return record, true
		}
	}
	return nil, false
}

// usernameTaken and emailTaken must be called with db.mu held.
func (db *database) usernameTaken(username string) bool {
	return len(db.users.list(func(u *userRecord) bool { return u.Username == username })) > 0
}

func (db *database) emailTaken(email string, except int64) bool {
	return len(db.users.list(func(u *userRecord) bool {
		return u.ID != except && strings.EqualFold(string(u.Email), email)
	})) > 0
}

// deleteTask removes the task with its comments and their replies.
func (db *database) deleteTask(id int64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.tasks.remove(id) {
		return false
	}
	for _, comment := range db.comments.list(func(c kanban.Comment) bool { return c.TaskID == id }) {
		db.deleteCommentLocked(comment.ID)
	}
	return true
}

func (db *database) deleteComment(id int64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.deleteCommentLocked(id)
}

func (db *database) deleteCommentLocked(id int64) bool {
	if !db.comments.remove(id) {
		return false
	}
	for _, reply := range db.replies.list(func(r kanban.Reply) bool { return r.CommentID == id }) {
		db.replies.remove(reply.ID)
	}
	return true
}

// sortUsers orders users by a Spring-style sort expression "property[,asc|desc]".
// Unknown properties sort by id.
func sortUsers(users []kanban.User, sort string) {
	property, direction, _ := strings.Cut(sort, ",")
	desc := strings.EqualFold(direction, "desc")

	key := func(u kanban.User) string { return "" }
	switch property {
	case "username":
		key = func(u kanban.User) string { return u.Username }
	case "email":
		key = func(u kanban.User) string { return string(u.Email) }
	case "firstName":
		key = func(u kanban.User) string { return u.FirstName }
	case "lastName":
		key = func(u kanban.User) string { return u.LastName }
	}

	slices.SortStableFunc(users, func(a, b kanban.User) int {
		c := cmp.Compare(key(a), key(b))
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}
