package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ptms/syncore/internal/common"
)

func (a *App) Login(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	sess, err := a.auth.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnauthorized):
			fmt.Println("Login rejected: invalid credentials")
		case errors.Is(err, common.ErrNoInitialAuth):
			fmt.Println("Offline login requires one successful online login first")
		case errors.Is(err, common.ErrNoOfflineData):
			fmt.Println("No cached credentials for offline login")
		default:
			fmt.Printf("Login failed: %v\n", err)
		}
		return
	}

	a.session = sess
	if sess.Offline {
		fmt.Printf("Logged in offline as %s\n", sess.Profile.Email)
	} else {
		fmt.Printf("Logged in as %s\n", sess.Profile.Email)
	}
}
