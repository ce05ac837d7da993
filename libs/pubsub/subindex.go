package pubsub

// subInfo is a subscription plus the client and query that created it.
type subInfo struct {
	clientID string
	query    Query
	args     []interface{}
	sub      *Subscription
}

type subInfoSet map[*subInfo]struct{}

func (s subInfoSet) add(si *subInfo) { s[si] = struct{}{} }

// subIndex tracks the active subscriptions by client and by ID.
// It is not safe for concurrent use.
type subIndex struct {
	all      subInfoSet
	byClient map[string]subInfoSet
	byID     map[string]*subInfo
}

func newSubIndex() *subIndex {
	return &subIndex{
		all:      make(subInfoSet),
		byClient: make(map[string]subInfoSet),
		byID:     make(map[string]*subInfo),
	}
}

// findID returns the set containing the subscription with the given ID,
// provided it belongs to clientID.
func (idx *subIndex) findID(clientID, id string) subInfoSet {
	si, ok := idx.byID[id]
	if !ok || si.clientID != clientID {
		return nil
	}
	return subInfoSet{si: struct{}{}}
}

// findClientQuery returns the set of subscriptions for the given client
// whose query has the given text.
func (idx *subIndex) findClientQuery(clientID, query string) subInfoSet {
	var found subInfoSet
	for si := range idx.byClient[clientID] {
		if si.query.String() == query {
			if found == nil {
				found = make(subInfoSet)
			}
			found.add(si)
		}
	}
	return found
}

func (idx *subIndex) contains(clientID, query string) bool {
	return len(idx.findClientQuery(clientID, query)) != 0
}

func (idx *subIndex) add(si *subInfo) {
	idx.all.add(si)
	if m := idx.byClient[si.clientID]; m == nil {
		idx.byClient[si.clientID] = subInfoSet{si: struct{}{}}
	} else {
		m.add(si)
	}
	idx.byID[si.sub.id] = si
}

func (idx *subIndex) remove(si *subInfo) {
	delete(idx.all, si)
	delete(idx.byID, si.sub.id)
	if m := idx.byClient[si.clientID]; m != nil {
		delete(m, si)
		if len(m) == 0 {
			delete(idx.byClient, si.clientID)
		}
	}
}
