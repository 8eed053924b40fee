// Package hierarchy finds the type that actually declares an inherited
// method, walking interfaces before superclasses at every level.
package hierarchy

import (
	"errors"
	"fmt"
)

// ErrTypeNotFound is returned by a Provider that knows nothing about a type
var ErrTypeNotFound = errors.New("type not found")

// Provider answers structural questions about types by internal name.
// Interfaces report an empty superclass.
type Provider interface {
	Interfaces(typ string) ([]string, error)
	Superclass(typ string) (string, error)
	HasDeclaredMethod(typ, name string, params []string) (bool, error)
	IsEnum(typ string) (bool, error)
}

// Resolver walks a Provider's type graph
type Resolver struct {
	p Provider
}

// NewResolver returns a Resolver over p
func NewResolver(p Provider) *Resolver {
	return &Resolver{p: p}
}

// IsEnum reports whether typ is a known enum type
func (r *Resolver) IsEnum(typ string) bool {
	if r == nil || r.p == nil {
		return false
	}
	ok, err := r.p.IsEnum(typ)
	return err == nil && ok
}

// DeclaringType returns the topmost ancestor of owner that declares
// name(params). Each step searches the interfaces of the current type depth
// first, then its superclass chain, and the search restarts from whatever
// type was found until nothing further up declares the method. When no
// ancestor declares it, owner itself is returned.
//
// Types the provider does not know are leaves.
func (r *Resolver) DeclaringType(owner, name string, params []string) (string, error) {
	if r == nil || r.p == nil {
		return owner, nil
	}

	seen := map[string]bool{owner: true}
	for {
		found, err := r.search(owner, name, params, true, make(map[string]bool))
		if err != nil {
			return "", err
		}
		if found == "" || seen[found] {
			return owner, nil
		}
		seen[found] = true
		owner = found
	}
}

func (r *Resolver) search(typ, name string, params []string, skipSelf bool, visited map[string]bool) (string, error) {
	if visited[typ] {
		return "", nil
	}
	visited[typ] = true

	if !skipSelf {
		ok, err := r.p.HasDeclaredMethod(typ, name, params)
		if err != nil {
			return "", leaf(typ, err)
		}
		if ok {
			return typ, nil
		}
	}

	ifaces, err := r.p.Interfaces(typ)
	if err != nil {
		return "", leaf(typ, err)
	}
	for _, iface := range ifaces {
		found, err := r.search(iface, name, params, false, visited)
		if err != nil {
			return "", err
		}
		if found != "" {
			return found, nil
		}
	}

	super, err := r.p.Superclass(typ)
	if err != nil {
		return "", leaf(typ, err)
	}
	if super == "" {
		return "", nil
	}
	return r.search(super, name, params, false, visited)
}

// leaf swallows ErrTypeNotFound so unknown ancestors end the walk quietly
func leaf(typ string, err error) error {
	if errors.Is(err, ErrTypeNotFound) {
		return nil
	}
	return fmt.Errorf("failed to inspect %s: %w", typ, err)
}

// Chain asks each provider in turn, moving on only when one reports
// ErrTypeNotFound.
type Chain []Provider

func (c Chain) Interfaces(typ string) ([]string, error) {
	for _, p := range c {
		ifaces, err := p.Interfaces(typ)
		if errors.Is(err, ErrTypeNotFound) {
			continue
		}
		return ifaces, err
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typ)
}

func (c Chain) Superclass(typ string) (string, error) {
	for _, p := range c {
		super, err := p.Superclass(typ)
		if errors.Is(err, ErrTypeNotFound) {
			continue
		}
		return super, err
	}
	return "", fmt.Errorf("%w: %s", ErrTypeNotFound, typ)
}

func (c Chain) HasDeclaredMethod(typ, name string, params []string) (bool, error) {
	for _, p := range c {
		ok, err := p.HasDeclaredMethod(typ, name, params)
		if errors.Is(err, ErrTypeNotFound) {
			continue
		}
		return ok, err
	}
	return false, fmt.Errorf("%w: %s", ErrTypeNotFound, typ)
}

func (c Chain) IsEnum(typ string) (bool, error) {
	for _, p := range c {
		ok, err := p.IsEnum(typ)
		if errors.Is(err, ErrTypeNotFound) {
			continue
		}
		return ok, err
	}
	return false, fmt.Errorf("%w: %s", ErrTypeNotFound, typ)
}
