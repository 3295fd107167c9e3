package kdown

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

func (k *Kdown) urlAllowedByRobots(u *url.URL) bool {
	if !k.RespectRobots {
		return true
	}

	robots, err := k.getRobotsData(u.Host)
	if err != nil {
		logrus.Debugf("failed to fetch robots.txt for %s: %v", u.Host, err)
		return true // fail open
	}

	return robots.TestAgent(u.Path, k.client.UserAgent)
}

func (k *Kdown) getRobotsData(host string) (*robotstxt.RobotsData, error) {
	k.robotsCacheMu.RLock()
	if k.robotsCache != nil {
		if cached, ok := k.robotsCache[host]; ok {
			k.robotsCacheMu.RUnlock()
			return cached, nil
		}
	}
	k.robotsCacheMu.RUnlock()

	// Try HTTP first, then HTTPS.
	resp, err := k.client.Fetch(fmt.Sprintf("http://%s/robots.txt", host), nil)
	if err != nil {
		resp, err = k.client.Fetch(fmt.Sprintf("https://%s/robots.txt", host), nil)
		if err != nil {
			// No robots.txt reachable at all: treat as empty.
			robotsData := &robotstxt.RobotsData{}
			k.cacheRobotsData(host, robotsData)
			return robotsData, nil
		}
	}
	defer closeQuietly(resp.Body)

	if resp.StatusCode != http.StatusOK {
		robotsData := &robotstxt.RobotsData{}
		k.cacheRobotsData(host, robotsData)
		return robotsData, nil
	}

	robotsData, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	k.cacheRobotsData(host, robotsData)
	return robotsData, nil
}

func (k *Kdown) cacheRobotsData(host string, data *robotstxt.RobotsData) {
	k.robotsCacheMu.Lock()
	if k.robotsCache == nil {
		k.robotsCache = make(map[string]*robotstxt.RobotsData)
	}
	k.robotsCache[host] = data
	k.robotsCacheMu.Unlock()
}
