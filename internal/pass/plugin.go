/*
 * Copyright 2022 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pass

import (
    `fmt`
    `sort`
    `sync`
)

// PluginAPIVersion is bumped whenever PassBuilder changes incompatibly.
const PluginAPIVersion = 1

// PluginInfo is how a pass makes itself known to the host pipeline.
type PluginInfo struct {
    APIVersion                   uint32
    Name                         string
    Version                      string
    RegisterPassBuilderCallbacks func(pb *PassBuilder)
}

func (self PluginInfo) String() string {
    return fmt.Sprintf("%s %s (api v%d)", self.Name, self.Version, self.APIVersion)
}

// PluginError occurs when a plugin cannot be registered.
type PluginError struct {
    Name   string
    Reason string
}

func (self PluginError) Error() string {
    return fmt.Sprintf("plugin %q: %s", self.Name, self.Reason)
}

type _PluginManager struct {
    m       sync.RWMutex
    plugins map[string]PluginInfo
}

var pluginTab = &_PluginManager {
    plugins: make(map[string]PluginInfo),
}

func (self *_PluginManager) add(info PluginInfo) error {
    self.m.Lock()
    defer self.m.Unlock()

    /* check for duplications */
    if _, ok := self.plugins[info.Name]; ok {
        return PluginError { Name: info.Name, Reason: "already registered" }
    }

    /* add to the table */
    self.plugins[info.Name] = info
    return nil
}

func (self *_PluginManager) remove(name string) {
    self.m.Lock()
    delete(self.plugins, name)
    self.m.Unlock()
}

func (self *_PluginManager) get(name string) (info PluginInfo, ok bool) {
    self.m.RLock()
    info, ok = self.plugins[name]
    self.m.RUnlock()
    return
}

func (self *_PluginManager) list() []PluginInfo {
    self.m.RLock()
    ret := make([]PluginInfo, 0, len(self.plugins))
    for _, v := range self.plugins { ret = append(ret, v) }
    self.m.RUnlock()

    /* sort by name */
    sort.Slice(ret, func(i int, j int) bool { return ret[i].Name < ret[j].Name })
    return ret
}

// Register validates and publishes a plugin.
func Register(info PluginInfo) error {
    if info.Name == "" {
        return PluginError { Name: info.Name, Reason: "empty plugin name" }
    } else if info.APIVersion != PluginAPIVersion {
        return PluginError { Name: info.Name, Reason: fmt.Sprintf("API version %d, host expects %d", info.APIVersion, PluginAPIVersion) }
    } else if info.RegisterPassBuilderCallbacks == nil {
        return PluginError { Name: info.Name, Reason: "no pass builder callbacks" }
    } else {
        return pluginTab.add(info)
    }
}

// MustRegister is Register for use in init functions.
func MustRegister(info PluginInfo) {
    if err := Register(info); err != nil {
        panic(err)
    }
}

// Unregister removes a plugin; registering under the same name is then
// allowed again.
func Unregister(name string) {
    pluginTab.remove(name)
}

func Lookup(name string) (PluginInfo, bool) {
    return pluginTab.get(name)
}

// Plugins lists every registered plugin, sorted by name.
func Plugins() []PluginInfo {
    return pluginTab.list()
}

// LoadPlugins lets every registered plugin add its extension point
// callbacks to the builder.
func (self *PassBuilder) LoadPlugins() {
    for _, p := range Plugins() {
        p.RegisterPassBuilderCallbacks(self)
    }
}
