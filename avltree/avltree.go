/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package avltree is a height-balanced binary search tree used to keep the
// scheduler's pending deadlines (and anything else needing an ordered,
// duplicate-tolerant index) in key order without rescanning on every
// insert. Nodes live in a slab.Slab rather than behind individual
// allocations, so a Handle - not a pointer - is the stable reference a
// caller holds onto; this is the direct translation of the original
// avltree.h, whose nodes were embedded inline in caller-owned structures
// and linked purely through intrusive left/right/parent pointers.
package avltree

import (
	"github.com/sabouaram/kaplar/errors"
	"github.com/sabouaram/kaplar/slab"
)

func init() {
	errors.Register(errors.MinPkgAVLTree+1, "key not found")
}

// ErrNotFound is returned by Find when no node compares equal to the key.
var ErrNotFound = errors.MinPkgAVLTree + 1

// Handle identifies a node within a Tree. It remains valid until the node
// is removed.
type Handle = slab.Handle

type node[K any, V any] struct {
	key    K
	val    V
	left   Handle
	right  Handle
	parent Handle
	height int8
}

// Tree is a generic AVL tree. The zero value is not usable; construct with
// New. Not safe for concurrent use without an external lock.
type Tree[K any, V any] struct {
	nodes *slab.Slab[node[K, V]]
	root  Handle
	cmp   func(a, b K) int
	count int
}

// New builds an empty tree with the given capacity hint and key comparator.
// cmp must return <0, 0, >0 the way bytes.Compare / strings.Compare do.
func New[K any, V any](capacity int, cmp func(a, b K) int) *Tree[K, V] {
	return &Tree[K, V]{
		nodes: slab.New[node[K, V]](capacity),
		cmp:   cmp,
	}
}

// Len returns the number of nodes currently in the tree.
func (t *Tree[K, V]) Len() int {
	return t.count
}

func (t *Tree[K, V]) at(h Handle) *node[K, V] {
	return t.nodes.Get(h)
}

func (t *Tree[K, V]) heightOf(h Handle) int8 {
	if h == 0 {
		return 0
	}
	return t.at(h).height
}

func (t *Tree[K, V]) recalc(h Handle) {
	n := t.at(h)
	lh, rh := t.heightOf(n.left), t.heightOf(n.right)
	if lh > rh {
		n.height = lh + 1
	} else {
		n.height = rh + 1
	}
}

func (t *Tree[K, V]) balanceFactor(h Handle) int {
	n := t.at(h)
	return int(t.heightOf(n.left)) - int(t.heightOf(n.right))
}

// Insert adds key/val, placing duplicate keys in the right subtree of the
// first equal node found (the original's "duplicates are never rejected,
// they are threaded to the right" rule), then retraces from the new leaf
// to the root, rotating at the first unbalanced ancestor.
func (t *Tree[K, V]) Insert(key K, val V) (Handle, errors.Error) {
	h, err := t.nodes.Alloc()
	if err != nil {
		return 0, err
	}
	leaf := t.at(h)
	leaf.key = key
	leaf.val = val
	leaf.left, leaf.right, leaf.parent = 0, 0, 0
	leaf.height = 1
	t.count++

	if t.root == 0 {
		t.root = h
		return h, nil
	}

	cur := t.root
	for {
		n := t.at(cur)
		var goRight bool
		if t.cmp(key, n.key) < 0 {
			goRight = false
		} else {
			goRight = true
		}
		if goRight {
			if n.right == 0 {
				n.right = h
				break
			}
			cur = n.right
		} else {
			if n.left == 0 {
				n.left = h
				break
			}
			cur = n.left
		}
	}
	t.at(h).parent = cur
	t.retrace(h)
	return h, nil
}

// retrace walks from h up to the root, recomputing heights and rotating at
// the first node whose balance factor leaves [-1, 1].
func (t *Tree[K, V]) retrace(h Handle) {
	for p := t.at(h).parent; p != 0; p = t.at(h).parent {
		t.recalc(p)
		bf := t.balanceFactor(p)
		if bf > 1 || bf < -1 {
			p = t.rebalance(p)
		}
		h = p
	}
}

func (t *Tree[K, V]) rebalance(h Handle) Handle {
	bf := t.balanceFactor(h)
	n := t.at(h)
	if bf > 1 {
		if t.balanceFactor(n.left) < 0 {
			n.left = t.rotateLeft(n.left)
			n = t.at(h)
		}
		return t.rotateRight(h)
	}
	if t.balanceFactor(n.right) > 0 {
		n.right = t.rotateRight(n.right)
		n = t.at(h)
	}
	return t.rotateLeft(h)
}

// rotateLeft promotes h's right child into h's place. Returns the new
// subtree root.
func (t *Tree[K, V]) rotateLeft(h Handle) Handle {
	n := t.at(h)
	r := n.right
	rn := t.at(r)

	n.right = rn.left
	if rn.left != 0 {
		t.at(rn.left).parent = h
	}
	rn.parent = n.parent
	t.reparent(h, r)
	rn.left = h
	n.parent = r

	t.recalc(h)
	t.recalc(r)
	return r
}

// rotateRight promotes h's left child into h's place. Returns the new
// subtree root.
func (t *Tree[K, V]) rotateRight(h Handle) Handle {
	n := t.at(h)
	l := n.left
	ln := t.at(l)

	n.left = ln.right
	if ln.right != 0 {
		t.at(ln.right).parent = h
	}
	ln.parent = n.parent
	t.reparent(h, l)
	ln.right = h
	n.parent = l

	t.recalc(h)
	t.recalc(l)
	return l
}

// reparent fixes the grandparent's child pointer (or the tree root) after
// old has been replaced by replacement as a subtree root.
func (t *Tree[K, V]) reparent(old, replacement Handle) {
	oldParent := t.at(old).parent
	if oldParent == 0 {
		t.root = replacement
		return
	}
	gp := t.at(oldParent)
	if gp.left == old {
		gp.left = replacement
	} else {
		gp.right = replacement
	}
}

// Find looks up an exact key match.
func (t *Tree[K, V]) Find(key K) (Handle, bool) {
	cur := t.root
	for cur != 0 {
		n := t.at(cur)
		c := t.cmp(key, n.key)
		switch {
		case c == 0:
			return cur, true
		case c < 0:
			cur = n.left
		default:
			cur = n.right
		}
	}
	return 0, false
}

// Key returns the key stored at h.
func (t *Tree[K, V]) Key(h Handle) K {
	return t.at(h).key
}

// Value returns a pointer to the value stored at h, for in-place mutation.
func (t *Tree[K, V]) Value(h Handle) *V {
	return &t.at(h).val
}

// First returns the handle of the minimum key, or 0 if the tree is empty.
func (t *Tree[K, V]) First() Handle {
	if t.root == 0 {
		return 0
	}
	cur := t.root
	for t.at(cur).left != 0 {
		cur = t.at(cur).left
	}
	return cur
}

// Last returns the handle of the maximum key, or 0 if the tree is empty.
func (t *Tree[K, V]) Last() Handle {
	if t.root == 0 {
		return 0
	}
	cur := t.root
	for t.at(cur).right != 0 {
		cur = t.at(cur).right
	}
	return cur
}

// Next returns the in-order successor of h, or 0 if h is the last node.
func (t *Tree[K, V]) Next(h Handle) Handle {
	n := t.at(h)
	if n.right != 0 {
		cur := n.right
		for t.at(cur).left != 0 {
			cur = t.at(cur).left
		}
		return cur
	}
	cur, p := h, n.parent
	for p != 0 && cur == t.at(p).right {
		cur = p
		p = t.at(p).parent
	}
	return p
}

// Prev returns the in-order predecessor of h, or 0 if h is the first node.
func (t *Tree[K, V]) Prev(h Handle) Handle {
	n := t.at(h)
	if n.left != 0 {
		cur := n.left
		for t.at(cur).right != 0 {
			cur = t.at(cur).right
		}
		return cur
	}
	cur, p := h, n.parent
	for p != 0 && cur == t.at(p).left {
		cur = p
		p = t.at(p).parent
	}
	return p
}

// Remove deletes the node at h, splicing and rebalancing as needed. Only
// h's own Handle is invalidated; every other live Handle, including one
// held for h's in-order successor, keeps referring to the same key/val it
// did before the call.
func (t *Tree[K, V]) Remove(h Handle) {
	n := t.at(h)

	if n.left != 0 && n.right != 0 {
		t.removeTwoChildren(h)
		return
	}

	// h now has at most one child.
	var child Handle
	if n.left != 0 {
		child = n.left
	} else {
		child = n.right
	}

	parent := n.parent
	if child != 0 {
		t.at(child).parent = parent
	}
	if parent == 0 {
		t.root = child
	} else {
		pn := t.at(parent)
		if pn.left == h {
			pn.left = child
		} else {
			pn.right = child
		}
	}

	t.count--
	_ = t.nodes.Free(h)
	t.retraceAfterRemove(parent)
}

// removeTwoChildren splices h out of the tree by promoting its in-order
// successor into h's position through pointer relinking - the same
// technique original_source/src/avltree.h uses on its intrusive left/
// right/parent pointers - rather than by copying the successor's key/val
// into h and freeing the successor's slot. Copying would free the wrong
// node's Handle: a caller holding the successor's Handle would suddenly
// find it pointing nowhere, while h's own (supposedly removed) Handle
// kept working. Relinking frees exactly h.
func (t *Tree[K, V]) removeTwoChildren(h Handle) {
	n := t.at(h)
	succ := t.Next(h)
	sn := t.at(succ)

	var rebalanceFrom Handle
	if sn.parent == h {
		// succ is h's immediate right child: it moves into h's slot as-is,
		// its own right subtree untouched.
		rebalanceFrom = succ
	} else {
		rebalanceFrom = sn.parent
		pn := t.at(sn.parent)
		pn.left = sn.right // succ has no left child, so it is always a left child itself
		if sn.right != 0 {
			t.at(sn.right).parent = sn.parent
		}
		sn.right = n.right
		t.at(n.right).parent = succ
	}

	sn.left = n.left
	t.at(n.left).parent = succ
	sn.parent = n.parent
	t.reparent(h, succ)
	t.recalc(succ)

	t.count--
	_ = t.nodes.Free(h)
	t.retraceAfterRemove(rebalanceFrom)
}

// retraceAfterRemove walks from the lowest structurally-changed node up to
// the root, recomputing heights and rotating at the first unbalanced
// ancestor, same as retrace does for insertion.
func (t *Tree[K, V]) retraceAfterRemove(from Handle) {
	for p := from; p != 0; {
		t.recalc(p)
		bf := t.balanceFactor(p)
		next := t.at(p).parent
		if bf > 1 || bf < -1 {
			p = t.rebalance(p)
			next = t.at(p).parent
		}
		p = next
	}
}
