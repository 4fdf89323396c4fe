package github

import (
	"context"
	"errors"

	gogithub "github.com/google/go-github/v66/github"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
)

const installationsPerPage = 100

func (g *gateway) CreateInstallationToken(ctx context.Context, appJWT string, installationID int64) (domain.InstallationToken, error) {
	tok, resp, err := g.client(appJWT, false).Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return domain.InstallationToken{}, wrapError("create installation token", resp, err)
	}
	if tok.GetToken() == "" {
		return domain.InstallationToken{}, errors.New("github: create installation token: response carried no token")
	}

	return domain.InstallationToken{
		Value:          tok.GetToken(),
		ExpiresAt:      tok.GetExpiresAt().Time,
		InstallationID: installationID,
	}, nil
}

// FindRepositoryInstallation asks GitHub which installation of the app covers
// repo. A repository the app cannot see yields a 404 *APIError.
func (g *gateway) FindRepositoryInstallation(ctx context.Context, appJWT string, repo domain.Repository) (Installation, error) {
	inst, resp, err := g.client(appJWT, false).Apps.FindRepositoryInstallation(ctx, repo.Owner, repo.Name)
	if err != nil {
		return Installation{}, wrapError("find repository installation", resp, err)
	}
	return toInstallation(inst), nil
}

// ListInstallations walks every page of the app's installations.
func (g *gateway) ListInstallations(ctx context.Context, appJWT string) ([]Installation, error) {
	client := g.client(appJWT, false)
	opts := &gogithub.ListOptions{PerPage: installationsPerPage}

	var all []Installation
	for {
		page, resp, err := client.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return nil, wrapError("list installations", resp, err)
		}
		for _, inst := range page {
			all = append(all, toInstallation(inst))
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func toInstallation(inst *gogithub.Installation) Installation {
	return Installation{
		ID:           inst.GetID(),
		AccountLogin: inst.GetAccount().GetLogin(),
	}
}
